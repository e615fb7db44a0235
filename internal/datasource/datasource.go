// Package datasource supplies the events a run is replayed from.
package datasource

import (
	"context"
	"iter"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-sim/internal/types"
)

// EventSource yields market events in non-decreasing time order.
type EventSource interface {
	// Events iterates over the events of the source. Iteration stops at the first error
	// or when ctx is done.
	Events(ctx context.Context) iter.Seq2[types.Event, error]
	// Count returns the number of events Events will yield
	Count(ctx context.Context) (int, error)
	// Close releases the resources held by the source
	Close() error
}

// Range limits a source to events between Start and End, both inclusive.
type Range struct {
	Start optional.Option[time.Time]
	End   optional.Option[time.Time]
}

// Contains reports whether t is inside the range.
func (r Range) Contains(t time.Time) bool {
	if r.Start.IsSome() && t.Before(r.Start.Unwrap()) {
		return false
	}

	if r.End.IsSome() && t.After(r.End.Unwrap()) {
		return false
	}

	return true
}
