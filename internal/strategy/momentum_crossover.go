package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

const MomentumCrossoverName = "momentum_crossover"

// MomentumCrossoverConfig configures a MomentumCrossover strategy.
type MomentumCrossoverConfig struct {
	FastPeriod      int `yaml:"fast_period" validate:"gte=1"`
	SlowPeriod      int `yaml:"slow_period" validate:"gtfield=FastPeriod"`
	InitialCapacity int `yaml:"initial_capacity" validate:"gte=1"`
}

// MomentumCrossover emits a buy when the fast EMA crosses above the slow EMA and a sell
// when it crosses below. It needs SlowPeriod+1 bars to see both sides of a cross.
type MomentumCrossover struct {
	config MomentumCrossoverConfig
}

// NewMomentumCrossover creates a crossover strategy.
func NewMomentumCrossover(config MomentumCrossoverConfig) (*MomentumCrossover, error) {
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid momentum crossover config")
	}

	return &MomentumCrossover{config: config}, nil
}

// NewMomentumCrossoverFromParams creates a crossover strategy from configuration params.
func NewMomentumCrossoverFromParams(params Params) (Strategy, error) {
	config := MomentumCrossoverConfig{FastPeriod: 12, SlowPeriod: 26, InitialCapacity: 1}
	if err := params.Decode(MomentumCrossoverName, &config); err != nil {
		return nil, err
	}

	return &MomentumCrossover{config: config}, nil
}

// Name implements Strategy.
func (m *MomentumCrossover) Name() string {
	return MomentumCrossoverName
}

// InitialCapacity implements Strategy.
func (m *MomentumCrossover) InitialCapacity() int {
	return m.config.InitialCapacity
}

// Evaluate implements Strategy.
func (m *MomentumCrossover) Evaluate(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
	if err := requireWindow(window, m.config.SlowPeriod+1); err != nil {
		return noSignal(), err
	}

	closes := types.Closes(window)

	fast, err := indicator.EMASeries(closes, m.config.FastPeriod)
	if err != nil {
		return noSignal(), err
	}

	slow, err := indicator.EMASeries(closes, m.config.SlowPeriod)
	if err != nil {
		return noSignal(), err
	}

	prevDiff := fast[len(fast)-2] - slow[len(slow)-2]
	diff := fast[len(fast)-1] - slow[len(slow)-1]
	current := window[len(window)-1]

	switch {
	case prevDiff <= 0 && diff > 0:
		return optional.Some(types.NewBuySignal(asset, current.Time, m.Name(),
			fmt.Sprintf("EMA(%d) crossed above EMA(%d)", m.config.FastPeriod, m.config.SlowPeriod))), nil
	case prevDiff >= 0 && diff < 0:
		return optional.Some(types.NewSellSignal(asset, current.Time, m.Name(),
			fmt.Sprintf("EMA(%d) crossed below EMA(%d)", m.config.FastPeriod, m.config.SlowPeriod))), nil
	default:
		return noSignal(), nil
	}
}
