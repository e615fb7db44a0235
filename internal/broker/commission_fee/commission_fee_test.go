package commission_fee

import (
	"testing"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type CommissionFeeTestSuite struct {
	suite.Suite
}

func TestCommissionFeeSuite(t *testing.T) {
	suite.Run(t, new(CommissionFeeTestSuite))
}

func (suite *CommissionFeeTestSuite) TestZeroCommissionFee() {
	fee := NewZeroCommissionFee()

	for _, quantity := range []float64{0, 10, 10000, -100} {
		suite.Equal(0.0, fee.Calculate(quantity))
	}
}

func (suite *CommissionFeeTestSuite) TestInteractiveBrokerCommissionFee() {
	fee := NewInteractiveBrokerCommissionFee()

	tests := []struct {
		name     string
		quantity float64
		expected float64
	}{
		{"zero quantity pays the minimum", 0, 1.0},
		{"below the minimum", 10, 1.0},
		{"at the minimum", 200, 1.0},
		{"above the minimum", 1000, 5.0},
		{"sell side uses the magnitude", -1000, 5.0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, fee.Calculate(tc.quantity), 1e-12)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestGetCommissionFeeHandler() {
	tests := []struct {
		name     string
		broker   Broker
		expected float64
		wantErr  bool
	}{
		{name: "interactive broker", broker: BrokerInteractiveBroker, expected: 5.0},
		{name: "zero commission", broker: BrokerZero, expected: 0.0},
		{name: "empty defaults to zero", broker: "", expected: 0.0},
		{name: "unknown broker", broker: Broker("robinhood"), wantErr: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			handler, err := GetCommissionFeeHandler(tc.broker)
			if tc.wantErr {
				suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

				return
			}

			suite.Require().NoError(err)
			suite.InDelta(tc.expected, handler.Calculate(1000), 1e-12)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestAllBrokers() {
	suite.Len(AllBrokers, 2)
	suite.Contains(AllBrokers, BrokerInteractiveBroker)
	suite.Contains(AllBrokers, BrokerZero)
}
