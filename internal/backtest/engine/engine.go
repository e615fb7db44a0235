// Package engine runs a backtest: events flow from a source through the strategy runtimes,
// the signal resolver and the broker, and every processed event is journaled.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-sim/internal/broker"
	"github.com/rxtech-lab/argo-sim/internal/datasource"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/resolver"
	"github.com/rxtech-lab/argo-sim/internal/runtime"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// OnRunStartCallback is called before the first event. total is the event count reported
// by the source.
type OnRunStartCallback func(runID string, total int) error

// OnProcessDataCallback is called after each processed event.
type OnProcessDataCallback func(current int, total int) error

// OnRunEndCallback is called when the run ends, successfully or not.
type OnRunEndCallback func(stats types.RunStats, err error)

// LifecycleCallbacks holds the lifecycle callbacks of a run. A nil callback is skipped.
// A callback returning an error aborts the run.
type LifecycleCallbacks struct {
	OnRunStart    OnRunStartCallback
	OnProcessData OnProcessDataCallback
	OnRunEnd      OnRunEndCallback
}

// Setup lists the collaborators of an engine.
type Setup struct {
	Strategies []strategy.Strategy
	Policy     resolver.Policy
	Broker     *broker.Broker
	Source     datasource.EventSource
	// Sink defaults to an in-memory journal
	Sink journal.Sink
	// Range skips events outside of it; the zero value keeps every event
	Range datasource.Range
	// Account is the starting account, copied at the start of every run
	Account *types.Account
}

// Engine runs one configured backtest. It is not safe for concurrent use; Run may be
// called again to repeat the run from the starting account.
type Engine struct {
	runtimes []*runtime.Runtime
	policy   resolver.Policy
	broker   *broker.Broker
	source   datasource.EventSource
	sink     journal.Sink
	rng      datasource.Range
	initial  *types.Account
	account  *types.Account
	logger   *logger.Logger
}

// Result is the outcome of a run.
type Result struct {
	Stats   types.RunStats
	Account *types.Account
}

// New validates setup and creates an engine.
func New(setup Setup, log *logger.Logger) (*Engine, error) {
	if len(setup.Strategies) == 0 {
		return nil, errors.New(errors.ErrCodeBacktestNoStrategies, "no strategies loaded")
	}

	if setup.Source == nil {
		return nil, errors.New(errors.ErrCodeBacktestNoDatasource, "no event source set")
	}

	if setup.Broker == nil || setup.Account == nil {
		return nil, errors.New(errors.ErrCodeBacktestConfigError, "a broker and a starting account are required")
	}

	policy, err := resolver.ParsePolicy(string(setup.Policy))
	if err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNop()
	}

	sink := setup.Sink
	if sink == nil {
		sink = journal.NewMemory()
	}

	runtimes := make([]*runtime.Runtime, 0, len(setup.Strategies))
	for _, s := range setup.Strategies {
		runtimes = append(runtimes, runtime.New(s, runtime.WithLogger(log)))
	}

	return &Engine{
		runtimes: runtimes,
		policy:   policy,
		broker:   setup.Broker,
		source:   setup.Source,
		sink:     sink,
		rng:      setup.Range,
		initial:  setup.Account.Clone(),
		account:  setup.Account.Clone(),
		logger:   log,
	}, nil
}

// Account returns the account as of the last processed event.
func (e *Engine) Account() *types.Account {
	return e.account.Clone()
}

// Run processes every event of the source in order.
//
// The first failure of a strategy, the resolver, the broker, the account model or the
// journal halts the run and is returned unchanged; the engine account and every strategy
// window then reflect the last event that was fully processed.
func (e *Engine) Run(ctx context.Context, callbacks LifecycleCallbacks) (result Result, err error) {
	runID := uuid.New().String()

	for _, rt := range e.runtimes {
		rt.Reset()
	}

	e.account = e.initial.Clone()

	stats := types.RunStats{
		ID:          runID,
		Timestamp:   time.Now(),
		InitialCash: e.initial.Cash,
	}

	defer func() {
		e.finalize(&stats)
		result = Result{Stats: stats, Account: e.account.Clone()}

		if callbacks.OnRunEnd != nil {
			callbacks.OnRunEnd(stats, err)
		}
	}()

	total, err := e.source.Count(ctx)
	if err != nil {
		return result, err
	}

	if callbacks.OnRunStart != nil {
		if err := callbacks.OnRunStart(runID, total); err != nil {
			return result, err
		}
	}

	e.logger.Info("Backtest started",
		zap.String("run_id", runID),
		zap.Int("strategies", len(e.runtimes)),
		zap.String("policy", string(e.policy)),
		zap.Int("events", total),
	)

	current := 0

	for event, err := range e.source.Events(ctx) {
		if err != nil {
			return result, err
		}

		if err := ctx.Err(); err != nil {
			return result, err
		}

		current++

		if e.rng.Contains(event.Time) {
			if err := e.process(ctx, runID, event, &stats); err != nil {
				e.logger.Error("Backtest halted",
					zap.String("run_id", runID),
					zap.Time("time", event.Time),
					zap.Error(err),
				)

				return result, err
			}
		}

		if callbacks.OnProcessData != nil {
			if err := callbacks.OnProcessData(current, total); err != nil {
				return result, err
			}
		}
	}

	e.logger.Info("Backtest finished",
		zap.String("run_id", runID),
		zap.Int("events", stats.Events),
		zap.Int("fills", stats.Fills),
	)

	return result, nil
}

func (e *Engine) process(ctx context.Context, runID string, event types.Event, stats *types.RunStats) error {
	raw := make([]types.Signal, 0)
	staged := make([]*runtime.Staged, 0, len(e.runtimes))

	for _, rt := range e.runtimes {
		result, err := rt.Stage(ctx, event)
		if err != nil {
			return err
		}

		staged = append(staged, result)
		raw = append(raw, result.Signals...)
	}

	resolved, err := resolver.Resolve(e.policy, raw)
	if err != nil {
		return err
	}

	working := e.account.Clone()

	instructions, err := e.broker.Execute(ctx, working, event, resolved)
	if err != nil {
		return err
	}

	entry := journal.Entry{
		RunID:        runID,
		Event:        event,
		Account:      *working,
		Signals:      resolved,
		Instructions: instructions,
	}

	if err := e.sink.Record(ctx, entry); err != nil {
		return err
	}

	for i, rt := range e.runtimes {
		rt.Commit(staged[i])
	}

	e.account = working

	stats.Events++
	stats.Signals.Raw += len(raw)
	stats.Signals.Resolved += len(resolved)

	for _, signal := range resolved {
		switch {
		case signal.IsBuy():
			stats.Signals.Buy++
		case signal.IsSell():
			stats.Signals.Sell++
		}
	}

	stats.Fills += len(instructions)
	for _, instruction := range instructions {
		stats.TotalFees += instruction.Fee
	}

	return nil
}

func (e *Engine) finalize(stats *types.RunStats) {
	stats.FinalCash = e.account.Cash
	stats.FinalEquity = e.account.Equity()
	stats.FinalBuyingPower = e.account.BuyingPower
	stats.Strategies = make([]types.StrategyInfo, 0, len(e.runtimes))

	for _, rt := range e.runtimes {
		stats.Strategies = append(stats.Strategies, rt.Info())
	}
}
