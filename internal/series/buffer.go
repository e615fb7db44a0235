// Package series holds the per-asset price history used by the strategy runtime.
package series

import (
	"github.com/rxtech-lab/argo-sim/internal/types"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Buffer stores the most recent bars of one asset using a sliding window.
// The window keeps at most Capacity bars, oldest first; appending to a full window
// evicts the oldest bar. Capacity only grows, except through Reset.
//
// A Buffer is owned by a single runtime and is not safe for concurrent use.
type Buffer struct {
	capacity int
	bars     []types.Bar
}

// New creates an empty buffer with the given capacity.
func New(capacity int) (*Buffer, error) {
	if capacity < 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidCapacity, "buffer capacity must be at least 1, got %d", capacity)
	}

	return &Buffer{
		capacity: capacity,
		bars:     make([]types.Bar, 0, capacity),
	}, nil
}

// Append adds bar at the tail of the window, evicting the oldest bars while the
// window is longer than the capacity.
func (b *Buffer) Append(bar types.Bar) {
	b.bars = append(b.bars, bar)
	if over := len(b.bars) - b.capacity; over > 0 {
		// copy down instead of reslicing so the backing array does not grow forever
		n := copy(b.bars, b.bars[over:])
		clear(b.bars[n:])
		b.bars = b.bars[:n]
	}
}

// Len returns the number of bars retained.
func (b *Buffer) Len() int {
	return len(b.bars)
}

// Capacity returns the required window length.
func (b *Buffer) Capacity() int {
	return b.capacity
}

// Filled reports whether the window holds exactly Capacity bars.
func (b *Buffer) Filled() bool {
	return len(b.bars) >= b.capacity
}

// Grow raises the capacity to minSize if it is larger. Retained bars are kept.
// It reports whether the capacity changed.
func (b *Buffer) Grow(minSize int) bool {
	if minSize <= b.capacity {
		return false
	}

	b.capacity = minSize

	return true
}

// Window returns a copy of the retained bars, oldest first.
func (b *Buffer) Window() []types.Bar {
	window := make([]types.Bar, len(b.bars))
	copy(window, b.bars)

	return window
}

// Last returns the most recent bar.
func (b *Buffer) Last() (types.Bar, bool) {
	if len(b.bars) == 0 {
		return types.Bar{}, false //nolint:exhaustruct // zero value for empty buffer
	}

	return b.bars[len(b.bars)-1], true
}

// Reset drops every bar and sets the capacity back to capacity.
func (b *Buffer) Reset(capacity int) error {
	if capacity < 1 {
		return errors.Newf(errors.ErrCodeInvalidCapacity, "buffer capacity must be at least 1, got %d", capacity)
	}

	b.capacity = capacity
	b.bars = make([]types.Bar, 0, capacity)

	return nil
}

// Clone returns an independent copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	return &Buffer{
		capacity: b.capacity,
		bars:     b.Window(),
	}
}
