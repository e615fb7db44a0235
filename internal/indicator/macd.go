package indicator

import (
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// MACDValue is one MACD reading.
type MACDValue struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD returns the MACD line (fast EMA - slow EMA), its signal EMA and the histogram.
// It needs slow+signal-1 values.
func MACD(values []float64, fast int, slow int, signal int) (MACDValue, error) {
	for _, period := range []int{fast, slow, signal} {
		if err := checkPeriod("MACD", period); err != nil {
			return MACDValue{}, err
		}
	}

	if fast >= slow {
		return MACDValue{}, errors.Newf(errors.ErrCodeInvalidPeriod, "MACD fast period (%d) must be shorter than slow period (%d)", fast, slow)
	}

	if err := checkHistory("MACD", slow+signal-1, len(values)); err != nil {
		return MACDValue{}, err
	}

	fastSeries, err := EMASeries(values, fast)
	if err != nil {
		return MACDValue{}, err
	}

	slowSeries, err := EMASeries(values, slow)
	if err != nil {
		return MACDValue{}, err
	}

	// align both series on the slow EMA's first point
	fastSeries = tail(fastSeries, len(slowSeries))

	line := make([]float64, len(slowSeries))
	for i := range slowSeries {
		line[i] = fastSeries[i] - slowSeries[i]
	}

	signalValue, err := EMA(line, signal)
	if err != nil {
		return MACDValue{}, err
	}

	macd := line[len(line)-1]

	return MACDValue{
		MACD:      macd,
		Signal:    signalValue,
		Histogram: macd - signalValue,
	}, nil
}
