package pricing

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
)

// SpreadConfig configures a Spread engine.
type SpreadConfig struct {
	// Bips is the full spread in basis points; 20000 bips would quote sells at zero
	Bips float64 `validate:"gte=0,lt=20000"`
	// PriceField is the reference price field, defaults to close
	PriceField types.PriceField
}

// Spread fills buys half a spread above the reference price and sells half a spread
// below it, so a round trip of the same size costs exactly one spread.
type Spread struct {
	field types.PriceField
	half  decimal.Decimal
}

var bipsPerUnit = decimal.NewFromInt(10000)

// NewSpread creates a spread engine.
func NewSpread(config SpreadConfig) (*Spread, error) {
	if math.IsNaN(config.Bips) || math.IsInf(config.Bips, 0) {
		return nil, errors.Newf(errors.ErrCodeInvalidSpread, "spread must be a finite number of bips, got %v", config.Bips)
	}

	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidSpread, err, "spread must be at least 0 and below 20000 bips, got %v", config.Bips)
	}

	field, err := resolvePriceField(config.PriceField)
	if err != nil {
		return nil, err
	}

	return &Spread{
		field: field,
		half:  decimal.NewFromFloat(config.Bips).Div(bipsPerUnit).Div(decimal.NewFromInt(2)),
	}, nil
}

// GetPricing implements Engine.
func (s *Spread) GetPricing(bar types.Bar, asOf time.Time) (Pricing, error) {
	ref, err := referencePrice(bar, s.field)
	if err != nil {
		return nil, err
	}

	return spreadPricing{ref: ref, half: s.half}, nil
}

type spreadPricing struct {
	ref  float64
	half decimal.Decimal
}

// MarketPrice returns ref*(1+s/2) for buys, ref*(1-s/2) for sells and ref for a zero size.
func (p spreadPricing) MarketPrice(size float64) (float64, error) {
	if err := checkSize(size); err != nil {
		return 0, err
	}

	ref := decimal.NewFromFloat(p.ref)

	switch {
	case size > 0:
		return ref.Mul(decimal.NewFromInt(1).Add(p.half)).InexactFloat64(), nil
	case size < 0:
		return ref.Mul(decimal.NewFromInt(1).Sub(p.half)).InexactFloat64(), nil
	default:
		return p.ref, nil
	}
}

func (p spreadPricing) Reference() float64 {
	return p.ref
}
