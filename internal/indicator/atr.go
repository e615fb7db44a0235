package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// TrueRange returns the true range of current given the previous close.
func TrueRange(current types.Bar, previousClose float64) float64 {
	return math.Max(
		current.High-current.Low,
		math.Max(
			math.Abs(current.High-previousClose),
			math.Abs(current.Low-previousClose),
		),
	)
}

// ATR returns the average true range over period bars, smoothed with an EMA of the
// true ranges. It needs period+1 bars because every true range uses the previous close.
func ATR(window []types.Bar, period int) (float64, error) {
	if err := checkPeriod("ATR", period); err != nil {
		return 0, err
	}

	if err := checkHistory("ATR", period+1, len(window)); err != nil {
		return 0, err
	}

	ranges := make([]float64, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		ranges = append(ranges, TrueRange(window[i], window[i-1].Close))
	}

	return EMA(ranges, period)
}
