package engine

import (
	"context"
	stderrors "errors"
	"iter"
	"os"
	"path/filepath"
	"testing"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/account"
	"github.com/rxtech-lab/argo-sim/internal/broker"
	"github.com/rxtech-lab/argo-sim/internal/broker/commission_fee"
	"github.com/rxtech-lab/argo-sim/internal/datasource"
	"github.com/rxtech-lab/argo-sim/internal/journal"
	"github.com/rxtech-lab/argo-sim/internal/pricing"
	"github.com/rxtech-lab/argo-sim/internal/resolver"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/mocks"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type EngineTestSuite struct {
	suite.Suite
	ctx  context.Context
	aapl types.Asset
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (suite *EngineTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.aapl = types.Equity("AAPL")
}

// constant emits a signal of rating on every bar.
func constant(name string, rating float64) strategy.Func {
	return strategy.Func{
		StrategyName: name,
		Capacity:     1,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			last := window[len(window)-1]

			return optional.Some(types.Signal{
				Asset:  asset,
				Time:   last.Time,
				Rating: rating,
				Type:   types.SignalTypeEntry,
			}), nil
		},
	}
}

func (suite *EngineTestSuite) broker() *broker.Broker {
	engine, err := pricing.NewEngine(pricing.Config{Model: pricing.ModelNoCost})
	suite.Require().NoError(err)

	commission, err := commission_fee.GetCommissionFeeHandler(commission_fee.BrokerZero)
	suite.Require().NoError(err)

	model, err := account.NewCash(account.IdentityConverter{}, account.CashConfig{})
	suite.Require().NoError(err)

	b, err := broker.New(engine, commission, model, broker.Config{Allocation: 1}, nil)
	suite.Require().NoError(err)

	return b
}

func (suite *EngineTestSuite) setup(source datasource.EventSource, strategies ...strategy.Strategy) Setup {
	return Setup{
		Strategies: strategies,
		Policy:     resolver.PolicySum,
		Broker:     suite.broker(),
		Source:     source,
		Account:    types.NewAccount(10000, "USD"),
	}
}

func (suite *EngineTestSuite) TestRunBuysAndHolds() {
	sink := journal.NewMemory()
	setup := suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101, 102)), constant("buyer", 1))
	setup.Sink = sink

	e, err := New(setup, nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.Require().NoError(err)

	stats := result.Stats
	suite.NotEmpty(stats.ID)
	suite.Equal(3, stats.Events)
	suite.Equal(types.SignalCounts{Raw: 3, Resolved: 3, Buy: 3}, stats.Signals)
	suite.Equal(1, stats.Fills)
	suite.Equal(10000.0, stats.InitialCash)
	suite.InDelta(0.0, stats.FinalCash, 1e-9)
	suite.InDelta(10200.0, stats.FinalEquity, 1e-9)
	suite.Require().Len(stats.Strategies, 1)
	suite.Equal(types.StrategyInfo{Name: "buyer", InitialCapacity: 1, Invocations: 3}, stats.Strategies[0])

	entries := sink.Entries()
	suite.Require().Len(entries, 3)
	suite.Equal(stats.ID, entries[0].RunID)
	suite.Require().Len(entries[0].Instructions, 1)
	suite.Equal(100.0, entries[0].Instructions[0].Quantity)
	suite.Equal("buyer", entries[0].Instructions[0].Strategy)
	suite.Empty(entries[1].Instructions)

	position, ok := result.Account.Position(suite.aapl)
	suite.Require().True(ok)
	suite.Equal(100.0, position.Quantity)
	suite.Equal(102.0, position.MarketPrice)
}

func (suite *EngineTestSuite) TestRunSkipsEventsOutsideRange() {
	bars := mocks.Bars(suite.aapl, 100, 101, 102)
	setup := suite.setup(datasource.NewMemoryFromBars(bars), constant("buyer", 1))
	setup.Range = datasource.Range{Start: optional.Some(bars[1].Time)}

	e, err := New(setup, nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(2, result.Stats.Events)
	suite.Equal(1, result.Stats.Fills)
	// 99 shares at 101
	suite.InDelta(1.0, result.Stats.FinalCash, 1e-9)
	suite.InDelta(1+99*102.0, result.Stats.FinalEquity, 1e-9)
}

func (suite *EngineTestSuite) TestOpposingStrategiesCancelOut() {
	setup := suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101)),
		constant("bull", 1), constant("bear", -1))

	e, err := New(setup, nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(4, result.Stats.Signals.Raw)
	suite.Zero(result.Stats.Signals.Resolved)
	suite.Zero(result.Stats.Fills)
	suite.Equal(10000.0, result.Stats.FinalCash)
}

func (suite *EngineTestSuite) TestJournalFailureHaltsRun() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	failure := stderrors.New("disk full")

	sink := mocks.NewMockSink(ctrl)
	gomock.InOrder(
		sink.EXPECT().Record(gomock.Any(), gomock.Any()).Return(nil),
		sink.EXPECT().Record(gomock.Any(), gomock.Any()).Return(failure),
	)

	setup := suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101, 102)), constant("buyer", 1))
	setup.Sink = sink

	e, err := New(setup, nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.Require().Error(err)
	suite.Same(failure, err)

	suite.Equal(1, result.Stats.Events)

	// account as of the first event
	position, ok := e.Account().Position(suite.aapl)
	suite.Require().True(ok)
	suite.Equal(100.0, position.MarketPrice)
	suite.Equal(e.Account().LastUpdate, mocks.Bars(suite.aapl, 100)[0].Time)

	// window as of the first event
	suite.Equal(1, e.runtimes[0].Retained(suite.aapl))
	suite.Equal(1, e.runtimes[0].Invocations())
}

func (suite *EngineTestSuite) TestLaterStrategyFailureKeepsEarlierWindows() {
	failure := stderrors.New("model diverged")
	calls := 0

	keeper := strategy.Func{
		StrategyName: "keeper",
		Capacity:     10,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			return optional.None[types.Signal](), nil
		},
	}

	boom := strategy.Func{
		StrategyName: "boom",
		Capacity:     1,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			calls++
			if calls == 3 {
				return optional.None[types.Signal](), failure
			}

			return optional.None[types.Signal](), nil
		},
	}

	bars := mocks.Bars(suite.aapl, 100, 101, 102)

	e, err := New(suite.setup(datasource.NewMemoryFromBars(bars), keeper, boom), nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.True(stderrors.Is(err, failure))
	suite.Equal(2, result.Stats.Events)

	suite.Equal(2, e.runtimes[0].Retained(suite.aapl))
	suite.Equal(bars[:2], e.runtimes[0].Window(suite.aapl))
	suite.Equal(1, e.runtimes[1].Retained(suite.aapl))
	suite.Equal(2, e.runtimes[1].Invocations())
}

func (suite *EngineTestSuite) TestExitClosesPositionUnderSum() {
	calls := 0

	trader := strategy.Func{
		StrategyName: "trader",
		Capacity:     1,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			calls++
			last := window[len(window)-1]

			switch calls {
			case 1:
				return optional.Some(types.NewBuySignal(asset, last.Time, "", "open")), nil
			case 2:
				return optional.Some(types.NewExitSignal(asset, last.Time, "", "close")), nil
			default:
				return optional.None[types.Signal](), nil
			}
		},
	}

	e, err := New(suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 110, 120)), trader), nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(2, result.Stats.Fills)
	suite.Equal(2, result.Stats.Signals.Resolved)

	_, ok := result.Account.Position(suite.aapl)
	suite.False(ok)
	suite.InDelta(11000.0, result.Stats.FinalCash, 1e-9)
}

func (suite *EngineTestSuite) TestStrategyFailureHaltsRun() {
	failure := stderrors.New("model diverged")
	calls := 0

	failing := strategy.Func{
		StrategyName: "failing",
		Capacity:     1,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			calls++
			if calls == 2 {
				return optional.None[types.Signal](), failure
			}

			return optional.None[types.Signal](), nil
		},
	}

	e, err := New(suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101, 102)), failing), nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.True(stderrors.Is(err, failure))
	suite.Equal(1, result.Stats.Events)
	suite.Equal(2, calls)
}

func (suite *EngineTestSuite) TestSourceFailureIsReturnedUnchanged() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	failure := errors.New(errors.ErrCodeSourceReadFailed, "corrupt row")
	bar := mocks.Bars(suite.aapl, 100)[0]

	source := mocks.NewMockEventSource(ctrl)
	source.EXPECT().Count(gomock.Any()).Return(2, nil)
	source.EXPECT().Events(gomock.Any()).Return(iter.Seq2[types.Event, error](func(yield func(types.Event, error) bool) {
		if !yield(types.NewEvent(bar.Time, bar), nil) {
			return
		}

		yield(types.Event{}, failure)
	}))

	e, err := New(suite.setup(source, constant("buyer", 1)), nil)
	suite.Require().NoError(err)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.True(errors.HasCode(err, errors.ErrCodeSourceReadFailed))
	suite.Equal(1, result.Stats.Events)
}

func (suite *EngineTestSuite) TestCallbacks() {
	e, err := New(suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101, 102)), constant("buyer", 1)), nil)
	suite.Require().NoError(err)

	var (
		startedID string
		startedOf int
		progress  []int
		ended     bool
	)

	result, err := e.Run(suite.ctx, LifecycleCallbacks{
		OnRunStart: func(runID string, total int) error {
			startedID = runID
			startedOf = total

			return nil
		},
		OnProcessData: func(current int, total int) error {
			progress = append(progress, current)

			return nil
		},
		OnRunEnd: func(stats types.RunStats, err error) {
			ended = true
			suite.NoError(err)
			suite.Equal(3, stats.Events)
		},
	})
	suite.Require().NoError(err)

	suite.Equal(result.Stats.ID, startedID)
	suite.Equal(3, startedOf)
	suite.Equal([]int{1, 2, 3}, progress)
	suite.True(ended)
}

func (suite *EngineTestSuite) TestCallbackErrorAbortsRun() {
	e, err := New(suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101, 102)), constant("buyer", 1)), nil)
	suite.Require().NoError(err)

	stop := stderrors.New("stop")

	var endErr error

	result, err := e.Run(suite.ctx, LifecycleCallbacks{
		OnProcessData: func(current int, total int) error {
			if current == 2 {
				return stop
			}

			return nil
		},
		OnRunEnd: func(stats types.RunStats, err error) {
			endErr = err
		},
	})
	suite.Same(stop, err)
	suite.Same(stop, endErr)
	suite.Equal(2, result.Stats.Events)
}

func (suite *EngineTestSuite) TestRunIsRepeatable() {
	e, err := New(suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101, 102)), constant("buyer", 1)), nil)
	suite.Require().NoError(err)

	first, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.Require().NoError(err)

	second, err := e.Run(suite.ctx, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.NotEqual(first.Stats.ID, second.Stats.ID)
	suite.Equal(first.Stats.Events, second.Stats.Events)
	suite.Equal(first.Stats.FinalEquity, second.Stats.FinalEquity)
	suite.Equal(first.Stats.Strategies, second.Stats.Strategies)
}

func (suite *EngineTestSuite) TestCanceledContext() {
	e, err := New(suite.setup(datasource.NewMemoryFromBars(mocks.Bars(suite.aapl, 100, 101)), constant("buyer", 1)), nil)
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	result, err := e.Run(ctx, LifecycleCallbacks{})
	suite.ErrorIs(err, context.Canceled)
	suite.Zero(result.Stats.Events)
}

func (suite *EngineTestSuite) TestNewValidation() {
	source := datasource.NewMemory()

	tests := []struct {
		name   string
		mutate func(*Setup)
		code   errors.ErrorCode
	}{
		{name: "no strategies", mutate: func(s *Setup) { s.Strategies = nil }, code: errors.ErrCodeBacktestNoStrategies},
		{name: "no source", mutate: func(s *Setup) { s.Source = nil }, code: errors.ErrCodeBacktestNoDatasource},
		{name: "no broker", mutate: func(s *Setup) { s.Broker = nil }, code: errors.ErrCodeBacktestConfigError},
		{name: "no account", mutate: func(s *Setup) { s.Account = nil }, code: errors.ErrCodeBacktestConfigError},
		{name: "unknown policy", mutate: func(s *Setup) { s.Policy = "median" }, code: errors.ErrCodeInvalidPolicy},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			setup := suite.setup(source, constant("buyer", 1))
			tc.mutate(&setup)

			_, err := New(setup, nil)
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tc.code))
		})
	}
}

const runCSV = `time,symbol,open,high,low,close,volume
2024-01-02 09:30:00,AAPL,100,101,99,100,1000
2024-01-02 09:31:00,AAPL,100,102,99,101,1000
2024-01-02 09:32:00,AAPL,101,103,100,103,1000
2024-01-02 09:33:00,AAPL,103,104,102,104,1000
`

func (suite *EngineTestSuite) TestRunFromConfig() {
	dir := suite.T().TempDir()
	dataPath := filepath.Join(dir, "AAPL.csv")
	suite.Require().NoError(os.WriteFile(dataPath, []byte(runCSV), 0644))

	content := "data_path: " + dataPath + "\n" +
		"results_folder: " + filepath.Join(dir, "results") + "\n" +
		"journal_path: " + filepath.Join(dir, "journal.db") + "\n" +
		"initial_cash: 10000\n" +
		"strategies:\n" +
		"  - name: breakout\n" +
		"    params:\n" +
		"      period: 2\n" +
		"      initial_capacity: 1\n"

	cfg, err := configFromYAML(content)
	suite.Require().NoError(err)

	journals := journal.NewRegistry(nil)
	defer journals.Close()

	run, err := FromConfig(suite.ctx, cfg, Dependencies{Journals: journals})
	suite.Require().NoError(err)
	defer run.Close()

	result, err := run.Execute(suite.ctx, LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Equal(4, result.Stats.Events)

	folder := run.ResultFolder()
	suite.Equal(filepath.Join(dir, "results", "AAPL"), folder)

	stats, err := types.ReadRunStats(filepath.Join(folder, "stats.yaml"))
	suite.Require().NoError(err)
	suite.Equal(result.Stats.ID, stats.ID)
	suite.Equal(4, stats.Events)

	_, err = os.Stat(filepath.Join(folder, "journal", "accounts.parquet"))
	suite.NoError(err)

	summary, err := run.journal.Summary(suite.ctx, result.Stats.ID)
	suite.Require().NoError(err)
	suite.Equal(4, summary.Events)
	suite.Equal(result.Stats.Fills, summary.Instructions)
}

func (suite *EngineTestSuite) TestFromConfigUnknownStrategy() {
	cfg, err := configFromYAML("data_path: missing.csv\nstrategies:\n  - name: martingale\n")
	suite.Require().NoError(err)

	_, err = FromConfig(suite.ctx, cfg, Dependencies{})
	suite.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func (suite *EngineTestSuite) TestFromConfigJournalWithoutRegistry() {
	dir := suite.T().TempDir()
	dataPath := filepath.Join(dir, "AAPL.csv")
	suite.Require().NoError(os.WriteFile(dataPath, []byte(runCSV), 0644))

	cfg, err := configFromYAML("data_path: " + dataPath + "\njournal_path: j.db\nstrategies:\n  - name: breakout\n")
	suite.Require().NoError(err)

	_, err = FromConfig(suite.ctx, cfg, Dependencies{})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestConfigError))
}
