// Package indicator is the technical-indicator library used by strategies.
//
// Every function works on a window of observations ordered oldest first and either
// computes its value or fails with *errors.InsufficientHistoryError carrying the
// window length it needs. Invalid parameters fail with ErrCodeInvalidPeriod and are
// not recoverable.
package indicator

import (
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

func checkPeriod(name string, period int) error {
	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "%s period must be a positive integer, got %d", name, period)
	}

	return nil
}

func checkHistory(name string, required int, actual int) error {
	if actual < required {
		return errors.NewInsufficientHistoryErrorf(required, actual,
			"insufficient data points for %s: required %d, got %d", name, required, actual)
	}

	return nil
}

// tail returns the last n values.
func tail[T any](values []T, n int) []T {
	return values[len(values)-n:]
}
