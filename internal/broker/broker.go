// Package broker is the simulated broker of a run. It turns resolved signals into fills,
// applies them to the account and asks the account model for the new buying power.
package broker

import (
	"context"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-sim/internal/account"
	"github.com/rxtech-lab/argo-sim/internal/broker/commission_fee"
	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/internal/pricing"
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config configures order sizing.
type Config struct {
	// Allocation is the fraction of buying power committed to a full-strength entry
	Allocation float64 `validate:"gt=0,lte=1"`
	// DecimalPrecision is the number of decimals kept on quantities
	DecimalPrecision int `validate:"gte=0,lte=12"`
	// AllowShort lets sell entries open short positions when flat
	AllowShort bool
}

// Broker fills signals against one account.
type Broker struct {
	pricing    pricing.Engine
	commission commission_fee.CommissionFee
	model      account.Model
	config     Config
	logger     *logger.Logger
}

var validate = validator.New()

// New creates a broker.
func New(engine pricing.Engine, commission commission_fee.CommissionFee, model account.Model, config Config, log *logger.Logger) (*Broker, error) {
	if engine == nil || commission == nil || model == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "broker requires a pricing engine, a commission model and an account model")
	}

	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidAllocation, "invalid broker config", err)
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Broker{
		pricing:    engine,
		commission: commission,
		model:      model,
		config:     config,
		logger:     log,
	}, nil
}

// Execute marks the account to event, fills signals in order and recomputes buying power.
//
// The work is done on a copy of acct which replaces acct only when every step succeeded,
// so a failure leaves the account as of the previous event.
func (b *Broker) Execute(ctx context.Context, acct *types.Account, event types.Event, signals []types.Signal) ([]types.Instruction, error) {
	working := acct.Clone()
	working.LastUpdate = event.Time
	working.Mark(event)

	if err := b.model.UpdateAccount(ctx, working); err != nil {
		return nil, err
	}

	instructions := make([]types.Instruction, 0, len(signals))

	for _, signal := range signals {
		instruction, ok, err := b.fill(working, event, signal)
		if err != nil {
			return nil, err
		}

		if !ok {
			continue
		}

		instructions = append(instructions, instruction)

		if err := b.model.UpdateAccount(ctx, working); err != nil {
			return nil, err
		}
	}

	acct.CopyFrom(working)

	return instructions, nil
}

// fill sizes, prices and applies the order for one signal. It reports false when the
// signal does not lead to a trade.
func (b *Broker) fill(working *types.Account, event types.Event, signal types.Signal) (types.Instruction, bool, error) {
	bar, ok := event.Bars[signal.Asset]
	if !ok {
		return types.Instruction{}, false, errors.Newf(errors.ErrCodeMarketDataMissing, "no bar for %s at %s", signal.Asset, event.Time)
	}

	quote, err := b.pricing.GetPricing(bar, event.Time)
	if err != nil {
		return types.Instruction{}, false, err
	}

	quantity, err := b.size(working, signal, quote)
	if err != nil {
		return types.Instruction{}, false, err
	}

	if quantity == 0 {
		return types.Instruction{}, false, nil
	}

	price, err := quote.MarketPrice(quantity)
	if err != nil {
		return types.Instruction{}, false, err
	}

	instruction := types.Instruction{
		ID:       uuid.New().String(),
		Asset:    signal.Asset,
		Quantity: quantity,
		Price:    price,
		Fee:      b.commission.Calculate(quantity),
		Time:     event.Time,
		Strategy: signal.Strategy,
		Reason:   fmt.Sprintf("%s %s rating %.4f", signal.Type, signal.Asset, signal.Rating),
	}

	if signal.Reason != "" {
		instruction.Reason = signal.Reason
	}

	apply(working, instruction, bar.Close)

	b.logger.Debug("Filled order",
		zap.String("symbol", signal.Asset.Symbol),
		zap.Float64("quantity", quantity),
		zap.Float64("price", price),
		zap.Float64("fee", instruction.Fee),
		zap.String("strategy", signal.Strategy),
	)

	return instruction, true, nil
}

// size returns the signed quantity to trade for signal.
//
//   - EXIT closes the open position.
//   - ENTRY opens or adds in the direction of the rating; it is ignored while a position
//     in the opposite direction is open.
//   - BOTH closes an opposite position, otherwise behaves like ENTRY.
func (b *Broker) size(working *types.Account, signal types.Signal, quote pricing.Pricing) (float64, error) {
	held := 0.0
	if position, ok := working.Position(signal.Asset); ok {
		held = position.Quantity
	}

	if signal.Type == types.SignalTypeExit {
		return -held, nil
	}

	if signal.Rating == 0 || math.IsNaN(signal.Rating) {
		return 0, nil
	}

	opposite := (signal.Rating > 0 && held < 0) || (signal.Rating < 0 && held > 0)
	if opposite {
		if signal.Type == types.SignalTypeBoth {
			return -held, nil
		}

		return 0, nil
	}

	if signal.Rating < 0 && held == 0 && !b.config.AllowShort {
		return 0, nil
	}

	direction := 1.0
	if signal.Rating < 0 {
		direction = -1.0
	}

	price, err := quote.MarketPrice(direction)
	if err != nil {
		return 0, err
	}

	strength := math.Min(math.Abs(signal.Rating), 1)
	budget := working.BuyingPower * b.config.Allocation * strength

	quantity := RoundToDecimalPrecision(MaxQuantity(budget, price, b.commission), b.config.DecimalPrecision)
	if quantity <= 0 {
		return 0, nil
	}

	return direction * quantity, nil
}

// apply books instruction on the account: cash moves by the notional and the fee, and
// the position quantity and average price are updated.
func apply(working *types.Account, instruction types.Instruction, mark float64) {
	quantity := decimal.NewFromFloat(instruction.Quantity)
	price := decimal.NewFromFloat(instruction.Price)

	cash := decimal.NewFromFloat(working.Cash).
		Sub(quantity.Mul(price)).
		Sub(decimal.NewFromFloat(instruction.Fee))
	working.Cash = cash.InexactFloat64()

	position, ok := working.Positions[instruction.Asset]
	if !ok {
		position = &types.Position{
			Asset:    instruction.Asset,
			Currency: working.BaseCurrency,
		}
		working.Positions[instruction.Asset] = position
	}

	held := decimal.NewFromFloat(position.Quantity)
	next := held.Add(quantity)

	switch {
	case next.IsZero():
		delete(working.Positions, instruction.Asset)

		return
	case held.IsZero() || held.Sign() != next.Sign():
		position.AveragePrice = instruction.Price
	case held.Sign() == quantity.Sign():
		cost := held.Mul(decimal.NewFromFloat(position.AveragePrice)).Add(quantity.Mul(price))
		position.AveragePrice = cost.Div(next).InexactFloat64()
	}

	position.Quantity = next.InexactFloat64()
	position.Short = next.IsNegative()
	position.MarketPrice = mark
}
