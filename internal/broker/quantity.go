package broker

import (
	"math"

	"github.com/rxtech-lab/argo-sim/internal/broker/commission_fee"
)

// MaxQuantity returns the largest quantity whose cost at price plus commission fits in budget.
func MaxQuantity(budget float64, price float64, commission commission_fee.CommissionFee) float64 {
	if price <= 0 || budget <= 0 {
		return 0
	}

	quantity := budget / price

	// converges in a few steps for any realistic fee schedule
	for i := 0; i < 10; i++ {
		totalCost := quantity*price + commission.Calculate(quantity)
		if totalCost <= budget {
			break
		}

		quantity = quantity * budget / totalCost
	}

	if quantity*price+commission.Calculate(quantity) > budget {
		// fixed fees: pay the fee first and spend the rest
		quantity = (budget - commission.Calculate(quantity)) / price
	}

	return math.Max(quantity, 0)
}

// RoundToDecimalPrecision rounds quantity towards zero to decimalPrecision digits.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	return math.Trunc(quantity*multiplier) / multiplier
}
