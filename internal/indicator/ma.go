package indicator

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if err := checkPeriod("SMA", period); err != nil {
		return 0, err
	}

	if err := checkHistory("SMA", period, len(values)); err != nil {
		return 0, err
	}

	return mean(tail(values, period)), nil
}

// EMA returns the exponential moving average over values. The average is seeded with
// the SMA of the first period values and then smoothed with alpha = 2/(period+1),
// matching pandas ewm(span=period, adjust=False) after the seed.
func EMA(values []float64, period int) (float64, error) {
	series, err := EMASeries(values, period)
	if err != nil {
		return 0, err
	}

	return series[len(series)-1], nil
}

// EMASeries returns the EMA at every point from index period-1 onwards.
func EMASeries(values []float64, period int) ([]float64, error) {
	if err := checkPeriod("EMA", period); err != nil {
		return nil, err
	}

	if err := checkHistory("EMA", period, len(values)); err != nil {
		return nil, err
	}

	alpha := 2.0 / float64(period+1)
	ema := mean(values[:period])

	series := make([]float64, 0, len(values)-period+1)
	series = append(series, ema)

	for i := period; i < len(values); i++ {
		ema = (values[i] * alpha) + (ema * (1 - alpha))
		series = append(series, ema)
	}

	return series, nil
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
