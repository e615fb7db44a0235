// Package pricing turns a bar into the execution price a simulated broker would fill at.
package pricing

import (
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Engine creates a Pricing for one bar at one instant.
type Engine interface {
	// GetPricing binds the engine to bar. It fails when the reference price of the bar
	// is not a positive finite number.
	GetPricing(bar types.Bar, asOf time.Time) (Pricing, error)
}

// Pricing maps a signed trade size to an execution price. Positive sizes buy, negative
// sizes sell. A Pricing is only valid for the event it was created for.
type Pricing interface {
	// MarketPrice returns the execution price for size
	MarketPrice(size float64) (float64, error)
	// Reference returns the reference price of the bar
	Reference() float64
}

type Model string

const (
	ModelNoCost Model = "no_cost"
	ModelSpread Model = "spread"
)

var AllModels = []any{
	ModelNoCost,
	ModelSpread,
}

// Config selects and configures a pricing model.
type Config struct {
	// Model is the pricing model, defaults to no_cost
	Model Model `yaml:"model" toml:"model" json:"model" jsonschema:"title=Pricing Model,enum=no_cost,enum=spread,default=no_cost"`
	// Bips is the full bid/ask spread in basis points, used by the spread model
	Bips float64 `yaml:"bips" toml:"bips" json:"bips" validate:"gte=0,lt=20000" jsonschema:"title=Spread (bips),minimum=0,exclusiveMaximum=20000"`
	// PriceField is the bar field used as reference price, defaults to close
	PriceField types.PriceField `yaml:"price_field" toml:"price_field" json:"price_field" jsonschema:"title=Reference Price Field,enum=open,enum=high,enum=low,enum=close,default=close"`
}

var validate = validator.New()

// NewEngine creates the engine named by config.Model.
func NewEngine(config Config) (Engine, error) {
	switch config.Model {
	case ModelNoCost, "":
		return NewNoCost(config.PriceField)
	case ModelSpread:
		return NewSpread(SpreadConfig{Bips: config.Bips, PriceField: config.PriceField})
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidPricingModel, "unknown pricing model %q", config.Model)
	}
}

func resolvePriceField(field types.PriceField) (types.PriceField, error) {
	if field == "" {
		return types.PriceFieldClose, nil
	}

	if !types.ValidPriceField(field) {
		return "", errors.Newf(errors.ErrCodeInvalidPriceField, "unknown price field %q", field)
	}

	return field, nil
}

func referencePrice(bar types.Bar, field types.PriceField) (float64, error) {
	ref, err := bar.Price(field)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidPriceField, "failed to read reference price", err)
	}

	if math.IsNaN(ref) || math.IsInf(ref, 0) || ref <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPrice, "invalid %s price %v for %s at %s", field, ref, bar.Asset, bar.Time.Format(time.RFC3339))
	}

	return ref, nil
}

func checkSize(size float64) error {
	if math.IsNaN(size) || math.IsInf(size, 0) {
		return errors.Newf(errors.ErrCodeInvalidSize, "cannot price a trade of size %v", size)
	}

	return nil
}
