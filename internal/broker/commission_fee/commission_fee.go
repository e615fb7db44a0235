package commission_fee

import (
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

type CommissionFee interface {
	// Calculate returns the commission, in the account's base currency, for trading
	// quantity units. The sign of quantity is ignored.
	Calculate(quantity float64) float64
}

type Broker string

const (
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerInteractiveBroker,
	BrokerZero,
}

// GetCommissionFeeHandler returns the commission model of broker. An empty broker
// means zero commission.
func GetCommissionFeeHandler(broker Broker) (CommissionFee, error) {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee(), nil
	case BrokerZero, "":
		return NewZeroCommissionFee(), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown broker %q", broker)
	}
}
