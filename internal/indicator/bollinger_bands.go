package indicator

import "math"

// Bands is the result of a Bollinger band calculation.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
	// StdDev is the population standard deviation of the period
	StdDev float64
}

// Width returns the distance between the upper and lower band.
func (b Bands) Width() float64 {
	return b.Upper - b.Lower
}

// StdDev returns the population standard deviation of the last period values.
func StdDev(values []float64, period int) (float64, error) {
	if err := checkPeriod("standard deviation", period); err != nil {
		return 0, err
	}

	if err := checkHistory("standard deviation", period, len(values)); err != nil {
		return 0, err
	}

	window := tail(values, period)
	middle := mean(window)

	var squaredDiffSum float64

	for _, v := range window {
		diff := v - middle
		squaredDiffSum += diff * diff
	}

	return math.Sqrt(squaredDiffSum / float64(period)), nil
}

// BollingerBands returns the bands at multiplier standard deviations around the SMA
// of the last period values.
func BollingerBands(values []float64, period int, multiplier float64) (Bands, error) {
	if err := checkPeriod("Bollinger Bands", period); err != nil {
		return Bands{}, err
	}

	if err := checkHistory("Bollinger Bands", period, len(values)); err != nil {
		return Bands{}, err
	}

	middle := mean(tail(values, period))

	stdDev, err := StdDev(values, period)
	if err != nil {
		return Bands{}, err
	}

	return Bands{
		Upper:  middle + (multiplier * stdDev),
		Middle: middle,
		Lower:  middle - (multiplier * stdDev),
		StdDev: stdDev,
	}, nil
}
