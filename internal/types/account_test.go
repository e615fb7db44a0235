package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type AccountTestSuite struct {
	suite.Suite
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountTestSuite))
}

func (suite *AccountTestSuite) TestPositionExposure() {
	long := Position{Asset: Equity("AAPL"), Quantity: 10, AveragePrice: 90, MarketPrice: 100}
	short := Position{Asset: Equity("TSLA"), Quantity: -2, AveragePrice: 110, MarketPrice: 100, Short: true}

	suite.Equal(1000.0, long.Exposure())
	suite.Equal(200.0, short.Exposure())
	suite.Equal(100.0, long.UnrealizedPnL())
	suite.Equal(20.0, short.UnrealizedPnL())
}

func (suite *AccountTestSuite) TestEquityAndMark() {
	account := NewAccount(1000, "USD")
	account.Positions[Equity("AAPL")] = &Position{Asset: Equity("AAPL"), Quantity: 2, MarketPrice: 100}

	suite.Equal(1200.0, account.Equity())

	now := time.Now()
	account.Mark(NewEvent(now, Bar{Asset: Equity("AAPL"), Time: now, Close: 150}))
	suite.Equal(150.0, account.Positions[Equity("AAPL")].MarketPrice)
	suite.Equal(1300.0, account.Equity())
}

func (suite *AccountTestSuite) TestCloneIsDeep() {
	account := NewAccount(1000, "USD")
	account.Positions[Equity("AAPL")] = &Position{Asset: Equity("AAPL"), Quantity: 2, MarketPrice: 100}

	clone := account.Clone()
	clone.Cash = 0
	clone.Positions[Equity("AAPL")].Quantity = 5
	delete(clone.Positions, Equity("AAPL"))

	suite.Equal(1000.0, account.Cash)
	suite.Equal(2.0, account.Positions[Equity("AAPL")].Quantity)

	account.CopyFrom(clone)
	suite.Equal(0.0, account.Cash)
	suite.Empty(account.Positions)
}

func (suite *AccountTestSuite) TestInstructionNotional() {
	suite.Equal(500.0, Instruction{Quantity: 5, Price: 100}.Notional())
	suite.Equal(500.0, Instruction{Quantity: -5, Price: 100}.Notional())
}

func (suite *AccountTestSuite) TestNilPositionsAreIgnored() {
	account := NewAccount(1000, "USD")
	account.Positions[Equity("AAPL")] = nil

	suite.NotPanics(func() {
		now := time.Now()
		account.Mark(NewEvent(now, Bar{Asset: Equity("AAPL"), Time: now, Close: 150}))
	})
	suite.Equal(1000.0, account.Equity())

	_, ok := account.Position(Equity("AAPL"))
	suite.False(ok)
	suite.Empty(account.Clone().Positions)
}
