// Package runtime drives one strategy over a stream of events.
//
// The runtime owns one series.Buffer per asset. Each event appends the asset's bar to its
// buffer; once a buffer holds Capacity bars the strategy is evaluated with the full
// window. A strategy that needs a longer window answers with
// *errors.InsufficientHistoryError and the buffer capacity grows to the requested size,
// keeping the history already retained so the asset catches up instead of starting over.
package runtime

import (
	"context"
	"time"

	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/series"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// Runtime evaluates a single strategy across all assets of an event stream.
// It is not safe for concurrent use.
type Runtime struct {
	strategy        strategy.Strategy
	initialCapacity int
	buffers         map[types.Asset]*series.Buffer
	lastEventTime   time.Time
	invocations     int
	logger          *logger.Logger
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for capacity changes.
func WithLogger(log *logger.Logger) Option {
	return func(r *Runtime) {
		r.logger = log
	}
}

// New creates a runtime for s. An initial capacity below 1 is raised to 1.
func New(s strategy.Strategy, opts ...Option) *Runtime {
	r := &Runtime{
		strategy:        s,
		initialCapacity: max(s.InitialCapacity(), 1),
		buffers:         make(map[types.Asset]*series.Buffer),
		logger:          logger.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Name returns the strategy name.
func (r *Runtime) Name() string {
	return r.strategy.Name()
}

// Staged is the outcome of evaluating one event that has not been applied to the runtime
// yet. Commit applies it.
type Staged struct {
	Signals     []types.Signal
	buffers     map[types.Asset]*series.Buffer
	eventTime   time.Time
	invocations int
}

// ProcessEvent appends the bars of event and returns the signals the strategy produced.
// It is Stage followed by Commit.
func (r *Runtime) ProcessEvent(ctx context.Context, event types.Event) ([]types.Signal, error) {
	staged, err := r.Stage(ctx, event)
	if err != nil {
		return nil, err
	}

	r.Commit(staged)

	return staged.Signals, nil
}

// Stage evaluates the strategy for event without changing the runtime.
//
// Events must arrive in non-decreasing time order. If the strategy fails for any asset
// with an error other than insufficient history, that error is returned unchanged.
// Nothing of the event is retained until the result is passed to Commit.
func (r *Runtime) Stage(ctx context.Context, event types.Event) (*Staged, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !r.lastEventTime.IsZero() && event.Time.Before(r.lastEventTime) {
		return nil, errors.Newf(errors.ErrCodeEventOutOfOrder,
			"event at %s is earlier than the last processed event at %s",
			event.Time.Format(time.RFC3339Nano), r.lastEventTime.Format(time.RFC3339Nano))
	}

	staged := make(map[types.Asset]*series.Buffer, len(event.Bars))
	signals := make([]types.Signal, 0)
	invocations := 0

	for _, asset := range event.Assets() {
		buffer, err := r.stage(asset)
		if err != nil {
			return nil, err
		}

		buffer.Append(event.Bars[asset])
		staged[asset] = buffer

		if !buffer.Filled() {
			continue
		}

		invocations++

		signal, err := r.strategy.Evaluate(asset, buffer.Window())
		if err != nil {
			historyErr, ok := errors.AsInsufficientHistoryError(err)
			if !ok {
				r.logger.Debug("Strategy failed",
					zap.String("strategy", r.strategy.Name()),
					zap.String("symbol", asset.Symbol),
					zap.Error(err),
				)

				return nil, err
			}

			if !buffer.Grow(historyErr.MinSize) {
				return nil, errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err,
					"strategy %s asked for %d observations of %s with a full window of %d",
					r.strategy.Name(), historyErr.MinSize, asset, buffer.Capacity())
			}

			r.logger.Debug("Growing window capacity",
				zap.String("strategy", r.strategy.Name()),
				zap.String("symbol", asset.Symbol),
				zap.Int("capacity", buffer.Capacity()),
				zap.Int("retained", buffer.Len()),
			)

			continue
		}

		if signal.IsSome() {
			resolved := signal.Unwrap()
			if resolved.Strategy == "" {
				resolved.Strategy = r.strategy.Name()
			}

			signals = append(signals, resolved)
		}
	}

	return &Staged{
		Signals:     signals,
		buffers:     staged,
		eventTime:   event.Time,
		invocations: invocations,
	}, nil
}

// Commit applies a result of Stage. A nil result is ignored.
func (r *Runtime) Commit(staged *Staged) {
	if staged == nil {
		return
	}

	for asset, buffer := range staged.buffers {
		r.buffers[asset] = buffer
	}

	r.lastEventTime = staged.eventTime
	r.invocations += staged.invocations
}

// stage returns a private copy of the asset's buffer, or a new one on first sight.
func (r *Runtime) stage(asset types.Asset) (*series.Buffer, error) {
	if buffer, ok := r.buffers[asset]; ok {
		return buffer.Clone(), nil
	}

	return series.New(r.initialCapacity)
}

// Reset drops all per-asset history and capacities so the runtime can start a new run.
func (r *Runtime) Reset() {
	clear(r.buffers)
	r.lastEventTime = time.Time{}
	r.invocations = 0
}

// Capacity returns the current window capacity for asset. Assets not seen yet report the
// initial capacity.
func (r *Runtime) Capacity(asset types.Asset) int {
	if buffer, ok := r.buffers[asset]; ok {
		return buffer.Capacity()
	}

	return r.initialCapacity
}

// Retained returns the number of bars currently kept for asset.
func (r *Runtime) Retained(asset types.Asset) int {
	if buffer, ok := r.buffers[asset]; ok {
		return buffer.Len()
	}

	return 0
}

// Window returns a copy of the bars currently kept for asset, oldest first.
func (r *Runtime) Window(asset types.Asset) []types.Bar {
	if buffer, ok := r.buffers[asset]; ok {
		return buffer.Window()
	}

	return nil
}

// Invocations returns how many times the strategy has been evaluated since the last reset.
func (r *Runtime) Invocations() int {
	return r.invocations
}

// Info returns a summary of the runtime for run statistics.
func (r *Runtime) Info() types.StrategyInfo {
	return types.StrategyInfo{
		Name:            r.strategy.Name(),
		InitialCapacity: r.initialCapacity,
		Invocations:     r.invocations,
	}
}
