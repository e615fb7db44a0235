// Package strategy holds the decision functions run by the strategy runtime.
package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Strategy turns the price history of one asset into at most one signal.
//
// Evaluate must be a pure function of (asset, window). When the window is too short it
// returns *errors.InsufficientHistoryError with the window length it needs; the runtime
// then grows the asset's buffer and calls again once the buffer is filled. Any other
// error halts the run.
type Strategy interface {
	// Name returns the name of the strategy
	Name() string
	// InitialCapacity returns the window length the runtime starts each asset with
	InitialCapacity() int
	// Evaluate returns the signal for asset given its window, oldest bar first
	Evaluate(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error)
}

// Func adapts a plain function to the Strategy interface.
type Func struct {
	StrategyName string
	Capacity     int
	Fn           func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error)
}

// Name implements Strategy.
func (f Func) Name() string {
	return f.StrategyName
}

// InitialCapacity implements Strategy.
func (f Func) InitialCapacity() int {
	return f.Capacity
}

// Evaluate implements Strategy.
func (f Func) Evaluate(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
	return f.Fn(asset, window)
}

func requireWindow(window []types.Bar, required int) error {
	if len(window) < required {
		return errors.NewInsufficientHistoryError(required, len(window))
	}

	return nil
}

func noSignal() optional.Option[types.Signal] {
	return optional.None[types.Signal]()
}

func clamp(value float64, low float64, high float64) float64 {
	if value < low {
		return low
	}

	if value > high {
		return high
	}

	return value
}
