package types

import (
	"math"
	"time"
)

// Position is the current holding of one asset.
type Position struct {
	Asset Asset `yaml:"asset" json:"asset"`
	// Quantity is the signed number of units held; negative for a short position
	Quantity float64 `yaml:"quantity" json:"quantity"`
	// AveragePrice is the average entry price of the open quantity
	AveragePrice float64 `yaml:"average_price" json:"average_price"`
	// MarketPrice is the last marked price of the asset
	MarketPrice float64 `yaml:"market_price" json:"market_price"`
	// Currency is the currency the asset is quoted in
	Currency Currency `yaml:"currency" json:"currency"`
	// Short is true when the position is a short position
	Short bool `yaml:"short" json:"short"`
}

// Exposure is the marked value of the position, always non-negative.
func (p Position) Exposure() float64 {
	return math.Abs(p.Quantity) * p.MarketPrice
}

// UnrealizedPnL is the profit or loss of the open quantity at the marked price.
func (p Position) UnrealizedPnL() float64 {
	return (p.MarketPrice - p.AveragePrice) * p.Quantity
}

// Account is the state of a simulated brokerage account.
// BuyingPower is derived and only written by an account model.
type Account struct {
	// Cash is the settled cash balance in CashCurrency
	Cash float64 `yaml:"cash" json:"cash"`
	// CashCurrency is the currency the cash is held in; empty means BaseCurrency
	CashCurrency Currency `yaml:"cash_currency,omitempty" json:"cash_currency,omitempty"`
	// BaseCurrency is the currency the account reports in
	BaseCurrency Currency `yaml:"base_currency" json:"base_currency"`
	// Positions is the open positions keyed by asset
	Positions map[Asset]*Position `yaml:"-" json:"-"`
	// BuyingPower is the amount available to open new positions
	BuyingPower float64 `yaml:"buying_power" json:"buying_power"`
	// LastUpdate is the time of the last event applied to the account
	LastUpdate time.Time `yaml:"last_update" json:"last_update"`
}

// NewAccount creates an account holding only cash.
func NewAccount(cash float64, baseCurrency Currency) *Account {
	return &Account{
		Cash:         cash,
		BaseCurrency: baseCurrency,
		Positions:    make(map[Asset]*Position),
		BuyingPower:  0,
		LastUpdate:   time.Time{},
	}
}

// CashIn returns the currency the cash balance is held in.
func (a *Account) CashIn() Currency {
	if a.CashCurrency == "" {
		return a.BaseCurrency
	}

	return a.CashCurrency
}

// Position returns the open position for asset, if any.
func (a *Account) Position(asset Asset) (*Position, bool) {
	position, ok := a.Positions[asset]

	return position, ok && position != nil
}

// Equity is cash plus the signed marked value of every position.
// Positions quoted in another currency are included at face value.
func (a *Account) Equity() float64 {
	equity := a.Cash
	for _, position := range a.Positions {
		if position == nil {
			continue
		}

		equity += position.Quantity * position.MarketPrice
	}

	return equity
}

// Mark updates the market price of the positions that have a bar in the event.
func (a *Account) Mark(event Event) {
	for asset, bar := range event.Bars {
		if position, ok := a.Positions[asset]; ok && position != nil {
			position.MarketPrice = bar.Close
		}
	}
}

// Clone returns a deep copy of the account. Positions are copied so the clone can be
// mutated without touching the original; nil positions are dropped.
func (a *Account) Clone() *Account {
	clone := *a
	clone.Positions = make(map[Asset]*Position, len(a.Positions))

	for asset, position := range a.Positions {
		if position == nil {
			continue
		}

		copied := *position
		clone.Positions[asset] = &copied
	}

	return &clone
}

// CopyFrom replaces the account state with other's state in place.
func (a *Account) CopyFrom(other *Account) {
	cloned := other.Clone()
	*a = *cloned
}
