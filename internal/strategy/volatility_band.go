package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

const VolatilityBandName = "volatility_band"

// VolatilityBandConfig configures a VolatilityBand strategy.
type VolatilityBandConfig struct {
	Period          int     `yaml:"period" validate:"gte=2"`
	Multiplier      float64 `yaml:"multiplier" validate:"gt=0"`
	InitialCapacity int     `yaml:"initial_capacity" validate:"gte=1"`
}

// VolatilityBand is a mean-reversion strategy on Bollinger bands. A close outside the
// bands produces an entry against the move with a rating that grows with the distance
// from the middle band; crossing the middle band produces an exit.
type VolatilityBand struct {
	config VolatilityBandConfig
}

// NewVolatilityBand creates a band strategy.
func NewVolatilityBand(config VolatilityBandConfig) (*VolatilityBand, error) {
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid volatility band config")
	}

	return &VolatilityBand{config: config}, nil
}

// NewVolatilityBandFromParams creates a band strategy from configuration params.
func NewVolatilityBandFromParams(params Params) (Strategy, error) {
	config := VolatilityBandConfig{Period: 20, Multiplier: 2, InitialCapacity: 1}
	if err := params.Decode(VolatilityBandName, &config); err != nil {
		return nil, err
	}

	return &VolatilityBand{config: config}, nil
}

// Name implements Strategy.
func (v *VolatilityBand) Name() string {
	return VolatilityBandName
}

// InitialCapacity implements Strategy.
func (v *VolatilityBand) InitialCapacity() int {
	return v.config.InitialCapacity
}

// Evaluate implements Strategy.
func (v *VolatilityBand) Evaluate(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
	if err := requireWindow(window, v.config.Period+1); err != nil {
		return noSignal(), err
	}

	closes := types.Closes(window)

	bands, err := indicator.BollingerBands(closes, v.config.Period, v.config.Multiplier)
	if err != nil {
		return noSignal(), err
	}

	if bands.StdDev == 0 {
		return noSignal(), nil
	}

	current := window[len(window)-1]
	previousClose := closes[len(closes)-2]

	if current.Close > bands.Upper || current.Close < bands.Lower {
		// at the band the rating is 0.5, at twice the band distance it saturates
		halfWidth := bands.Upper - bands.Middle
		rating := clamp(-(current.Close-bands.Middle)/(2*halfWidth), -1, 1)

		return optional.Some(types.Signal{
			Asset:    asset,
			Time:     current.Time,
			Rating:   rating,
			Type:     types.SignalTypeEntry,
			Strategy: v.Name(),
			Reason:   fmt.Sprintf("close %.4f outside bands [%.4f, %.4f]", current.Close, bands.Lower, bands.Upper),
		}), nil
	}

	crossedDown := previousClose > bands.Middle && current.Close <= bands.Middle
	crossedUp := previousClose < bands.Middle && current.Close >= bands.Middle

	if crossedDown || crossedUp {
		return optional.Some(types.NewExitSignal(asset, current.Time, v.Name(),
			fmt.Sprintf("close %.4f crossed middle band %.4f", current.Close, bands.Middle))), nil
	}

	return noSignal(), nil
}
