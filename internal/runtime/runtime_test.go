package runtime

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/strategy"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/mocks"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type RuntimeTestSuite struct {
	suite.Suite
	ctx  context.Context
	aapl types.Asset
	msft types.Asset
}

func TestRuntimeSuite(t *testing.T) {
	suite.Run(t, new(RuntimeTestSuite))
}

func (suite *RuntimeTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.aapl = types.Equity("AAPL")
	suite.msft = types.Equity("MSFT")
}

// windowStrategy needs minSize bars and emits a buy on every full window.
func windowStrategy(initialCapacity int, minSize int) strategy.Func {
	return strategy.Func{
		StrategyName: "window",
		Capacity:     initialCapacity,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			if len(window) < minSize {
				return optional.None[types.Signal](), errors.NewInsufficientHistoryError(minSize, len(window))
			}

			last := window[len(window)-1]

			return optional.Some(types.NewBuySignal(asset, last.Time, "window", "")), nil
		},
	}
}

func (suite *RuntimeTestSuite) events(count int, assets ...types.Asset) []types.Event {
	start := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	events := make([]types.Event, count)

	for i := range events {
		t := start.Add(time.Duration(i) * time.Minute)
		bars := make([]types.Bar, len(assets))

		for j, asset := range assets {
			price := 100 + float64(i)
			bars[j] = types.Bar{Asset: asset, Time: t, Open: price, High: price, Low: price, Close: price}
		}

		events[i] = types.NewEvent(t, bars...)
	}

	return events
}

func (suite *RuntimeTestSuite) TestAdaptiveWindowCatchesUp() {
	ctrl := gomock.NewController(suite.T())
	defer ctrl.Finish()

	windowLengths := make([]int, 0)

	mockStrategy := mocks.NewMockStrategy(ctrl)
	mockStrategy.EXPECT().Name().Return("mock").AnyTimes()
	mockStrategy.EXPECT().InitialCapacity().Return(1).Times(1)
	mockStrategy.EXPECT().Evaluate(suite.aapl, gomock.Any()).DoAndReturn(
		func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			windowLengths = append(windowLengths, len(window))
			if len(window) < 26 {
				return optional.None[types.Signal](), errors.NewInsufficientHistoryError(26, len(window))
			}

			return optional.Some(types.NewBuySignal(asset, window[len(window)-1].Time, "mock", "")), nil
		},
	).Times(6)

	rt := New(mockStrategy)

	for i, event := range suite.events(30, suite.aapl) {
		signals, err := rt.ProcessEvent(suite.ctx, event)
		suite.Require().NoError(err)

		eventNumber := i + 1
		if eventNumber <= 25 {
			suite.Empty(signals, "event %d", eventNumber)
		} else {
			suite.Len(signals, 1, "event %d", eventNumber)
		}

		if eventNumber == 1 {
			suite.Equal(26, rt.Capacity(suite.aapl))
			suite.Equal(1, rt.Retained(suite.aapl))
		}
	}

	suite.Equal([]int{1, 26, 26, 26, 26, 26}, windowLengths)
	suite.Equal(6, rt.Invocations())
	suite.Equal(26, rt.Capacity(suite.aapl))
	suite.Equal(26, rt.Retained(suite.aapl))
}

func (suite *RuntimeTestSuite) TestCapacityIsPerAsset() {
	rt := New(windowStrategy(2, 3))

	events := suite.events(3, suite.aapl)
	for _, event := range events {
		_, err := rt.ProcessEvent(suite.ctx, event)
		suite.Require().NoError(err)
	}

	suite.Equal(3, rt.Capacity(suite.aapl))
	suite.Equal(2, rt.Capacity(suite.msft))
}

func (suite *RuntimeTestSuite) TestHaltLeavesBuffersAsOfPreviousEvent() {
	failure := stderrors.New("indicator exploded")
	calls := 0

	rt := New(strategy.Func{
		StrategyName: "flaky",
		Capacity:     1,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			calls++
			if asset.Symbol == "MSFT" && len(window) == 1 && window[0].Close == 102 {
				return optional.None[types.Signal](), failure
			}

			return optional.None[types.Signal](), nil
		},
	})

	events := suite.events(3, suite.aapl, suite.msft)

	for _, event := range events[:2] {
		_, err := rt.ProcessEvent(suite.ctx, event)
		suite.Require().NoError(err)
	}

	invocations := rt.Invocations()

	_, err := rt.ProcessEvent(suite.ctx, events[2])
	suite.ErrorIs(err, failure)
	suite.Equal(failure, err)

	// AAPL was evaluated before MSFT failed, yet its buffer must not reflect the event
	suite.Equal(invocations, rt.Invocations())
	suite.Require().Len(rt.Window(suite.aapl), 1)
	suite.Equal(101.0, rt.Window(suite.aapl)[0].Close)
	suite.Equal(101.0, rt.Window(suite.msft)[0].Close)
	suite.Equal(6, calls)
}

func (suite *RuntimeTestSuite) TestHaltDoesNotKeepCapacityGrowth() {
	failure := stderrors.New("boom")

	rt := New(strategy.Func{
		StrategyName: "grow-then-fail",
		Capacity:     1,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			if asset.Symbol == "AAPL" {
				return optional.None[types.Signal](), errors.NewInsufficientHistoryError(10, len(window))
			}

			return optional.None[types.Signal](), failure
		},
	})

	_, err := rt.ProcessEvent(suite.ctx, suite.events(1, suite.aapl, suite.msft)[0])
	suite.ErrorIs(err, failure)
	suite.Equal(1, rt.Capacity(suite.aapl))
	suite.Equal(0, rt.Retained(suite.aapl))
}

func (suite *RuntimeTestSuite) TestStageWithoutCommitLeavesRuntimeUnchanged() {
	rt := New(windowStrategy(1, 3))
	events := suite.events(3, suite.aapl)

	_, err := rt.ProcessEvent(suite.ctx, events[0])
	suite.Require().NoError(err)

	staged, err := rt.Stage(suite.ctx, events[1])
	suite.Require().NoError(err)
	suite.Empty(staged.Signals)

	suite.Equal(1, rt.Retained(suite.aapl))
	suite.Equal(3, rt.Capacity(suite.aapl))

	rt.Commit(staged)

	suite.Equal(2, rt.Retained(suite.aapl))
	suite.Equal(1, rt.Invocations())

	discarded, err := rt.Stage(suite.ctx, events[2])
	suite.Require().NoError(err)
	suite.Len(discarded.Signals, 1)

	suite.Equal(2, rt.Retained(suite.aapl))
	suite.Equal(1, rt.Invocations())

	_, err = rt.ProcessEvent(suite.ctx, events[2])
	suite.NoError(err)
	suite.Equal(3, rt.Retained(suite.aapl))
	suite.Equal(2, rt.Invocations())

	rt.Commit(nil)
	suite.Equal(3, rt.Retained(suite.aapl))
}

func (suite *RuntimeTestSuite) TestOutOfOrderEventIsRejected() {
	rt := New(windowStrategy(1, 1))
	events := suite.events(2, suite.aapl)

	_, err := rt.ProcessEvent(suite.ctx, events[1])
	suite.Require().NoError(err)

	_, err = rt.ProcessEvent(suite.ctx, events[0])
	suite.True(errors.HasCode(err, errors.ErrCodeEventOutOfOrder))
	suite.Equal(1, rt.Retained(suite.aapl))

	// equal timestamps are allowed
	_, err = rt.ProcessEvent(suite.ctx, events[1])
	suite.NoError(err)
}

func (suite *RuntimeTestSuite) TestResetRestoresInitialCapacity() {
	rt := New(windowStrategy(2, 5))

	for _, event := range suite.events(6, suite.aapl) {
		_, err := rt.ProcessEvent(suite.ctx, event)
		suite.Require().NoError(err)
	}

	suite.Equal(5, rt.Capacity(suite.aapl))
	suite.NotZero(rt.Invocations())

	rt.Reset()

	suite.Equal(2, rt.Capacity(suite.aapl))
	suite.Equal(0, rt.Retained(suite.aapl))
	suite.Equal(0, rt.Invocations())

	// the clock is reset too, so an earlier run can be replayed
	_, err := rt.ProcessEvent(suite.ctx, suite.events(1, suite.aapl)[0])
	suite.NoError(err)
}

func (suite *RuntimeTestSuite) TestInitialCapacityIsClampedToOne() {
	rt := New(windowStrategy(0, 1))
	suite.Equal(1, rt.Capacity(suite.aapl))

	signals, err := rt.ProcessEvent(suite.ctx, suite.events(1, suite.aapl)[0])
	suite.NoError(err)
	suite.Len(signals, 1)
	suite.Equal(1, rt.Info().InitialCapacity)
}

func (suite *RuntimeTestSuite) TestInsufficientHistoryWithoutGrowthFailsLoudly() {
	rt := New(strategy.Func{
		StrategyName: "liar",
		Capacity:     3,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			return optional.None[types.Signal](), errors.NewInsufficientHistoryError(2, len(window))
		},
	})

	var err error
	for _, event := range suite.events(3, suite.aapl) {
		_, err = rt.ProcessEvent(suite.ctx, event)
	}

	suite.True(errors.HasCode(err, errors.ErrCodeStrategyRuntimeError))
}

func (suite *RuntimeTestSuite) TestSignalsCarryStrategyName() {
	rt := New(strategy.Func{
		StrategyName: "anonymous",
		Capacity:     1,
		Fn: func(asset types.Asset, window []types.Bar) (optional.Option[types.Signal], error) {
			return optional.Some(types.Signal{Asset: asset, Rating: 0.4, Type: types.SignalTypeEntry}), nil
		},
	})

	signals, err := rt.ProcessEvent(suite.ctx, suite.events(1, suite.msft, suite.aapl)[0])
	suite.NoError(err)
	suite.Require().Len(signals, 2)
	suite.Equal(suite.aapl, signals[0].Asset)
	suite.Equal(suite.msft, signals[1].Asset)

	for _, signal := range signals {
		suite.Equal("anonymous", signal.Strategy)
	}
}

func (suite *RuntimeTestSuite) TestCanceledContext() {
	rt := New(windowStrategy(1, 1))

	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	_, err := rt.ProcessEvent(ctx, suite.events(1, suite.aapl)[0])
	suite.ErrorIs(err, context.Canceled)
	suite.Equal(0, rt.Retained(suite.aapl))
}
