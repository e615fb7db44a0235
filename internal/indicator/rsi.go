package indicator

// RSI returns the relative strength index of values using Wilder's smoothing.
// It needs period+1 values to produce period price changes.
func RSI(values []float64, period int) (float64, error) {
	if err := checkPeriod("RSI", period); err != nil {
		return 0, err
	}

	if err := checkHistory("RSI", period+1, len(values)); err != nil {
		return 0, err
	}

	gains := make([]float64, 0, len(values)-1)
	losses := make([]float64, 0, len(values)-1)

	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := mean(gains[:period])
	avgLoss := mean(losses[:period])

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100, nil
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs)), nil
}
