package strategy

import (
	"fmt"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/indicator"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

const BreakoutName = "breakout"

// BreakoutConfig configures a Breakout strategy.
type BreakoutConfig struct {
	// Period is the number of previous bars forming the channel
	Period int `yaml:"period" validate:"gte=1"`
	// InitialCapacity is the starting window length
	InitialCapacity int `yaml:"initial_capacity" validate:"gte=1"`
}

// Breakout buys when the close breaks above the highest high of the previous Period bars
// and sells when it breaks below the lowest low.
type Breakout struct {
	config BreakoutConfig
}

// NewBreakout creates a breakout strategy.
func NewBreakout(config BreakoutConfig) (*Breakout, error) {
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStrategyConfigError, err, "invalid breakout config")
	}

	return &Breakout{config: config}, nil
}

// NewBreakoutFromParams creates a breakout strategy from configuration params.
func NewBreakoutFromParams(params Params) (Strategy, error) {
	config := BreakoutConfig{Period: 20, InitialCapacity: 1}
	if err := params.Decode(BreakoutName, &config); err != nil {
		return nil, err
	}

	return &Breakout{config: config}, nil
}

// Name implements Strategy.
func (b *Breakout) Name() string {
	return BreakoutName
}

// InitialCapacity implements Strategy.
func (b *Breakout) InitialCapacity() int {
	return b.config.InitialCapacity
}

// Evaluate implements Strategy.
func (b *Breakout) Evaluate(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
	if err := requireWindow(window, b.config.Period+1); err != nil {
		return noSignal(), err
	}

	current := window[len(window)-1]

	channel, err := indicator.Donchian(window[:len(window)-1], b.config.Period)
	if err != nil {
		return noSignal(), err
	}

	switch {
	case current.Close > channel.High:
		return optional.Some(types.NewBuySignal(asset, current.Time, b.Name(),
			fmt.Sprintf("close %.4f broke above %d-bar high %.4f", current.Close, b.config.Period, channel.High))), nil
	case current.Close < channel.Low:
		return optional.Some(types.NewSellSignal(asset, current.Time, b.Name(),
			fmt.Sprintf("close %.4f broke below %d-bar low %.4f", current.Close, b.config.Period, channel.Low))), nil
	default:
		return noSignal(), nil
	}
}
