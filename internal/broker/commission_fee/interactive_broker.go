package commission_fee

import "math"

const (
	interactiveBrokerPerShare = 0.005
	interactiveBrokerMinimum  = 1.0
)

// InteractiveBrokerCommissionFee charges a fixed amount per unit with a minimum per
// order, like the Interactive Brokers fixed pricing plan.
type InteractiveBrokerCommissionFee struct{}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

func (c *InteractiveBrokerCommissionFee) Calculate(quantity float64) float64 {
	fee := interactiveBrokerPerShare * math.Abs(quantity)
	if fee < interactiveBrokerMinimum {
		return interactiveBrokerMinimum
	}

	return fee
}
