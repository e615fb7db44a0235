package datasource

import (
	"context"
	"iter"
	"sort"

	"github.com/rxtech-lab/argo-sim/internal/types"
)

// Memory replays a fixed list of events.
type Memory struct {
	events []types.Event
}

// NewMemory creates a source over events. Events are ordered by time, keeping the
// given order for equal times.
func NewMemory(events ...types.Event) *Memory {
	sorted := make([]types.Event, len(events))
	copy(sorted, events)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	return &Memory{events: sorted}
}

// NewMemoryFromBars groups bars with the same time into one event.
func NewMemoryFromBars(bars []types.Bar) *Memory {
	index := make(map[int64]int)
	events := make([]types.Event, 0)

	for _, bar := range bars {
		key := bar.Time.UnixNano()

		i, ok := index[key]
		if !ok {
			i = len(events)
			index[key] = i
			events = append(events, types.NewEvent(bar.Time))
		}

		events[i].Bars[bar.Asset] = bar
	}

	return NewMemory(events...)
}

// Events implements EventSource.
func (m *Memory) Events(ctx context.Context) iter.Seq2[types.Event, error] {
	return func(yield func(types.Event, error) bool) {
		for _, event := range m.events {
			if err := ctx.Err(); err != nil {
				yield(types.Event{}, err)

				return
			}

			if !yield(event, nil) {
				return
			}
		}
	}
}

// Count implements EventSource.
func (m *Memory) Count(ctx context.Context) (int, error) {
	return len(m.events), nil
}

// Close implements EventSource.
func (m *Memory) Close() error {
	return nil
}
