package journal

import (
	"context"
	"sync"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Memory keeps entries in memory.
type Memory struct {
	mu      sync.Mutex
	entries []Entry
	closed  bool
}

// NewMemory creates an empty in-memory journal.
func NewMemory() *Memory {
	return &Memory{entries: make([]Entry, 0)}
}

// Record implements Sink.
func (m *Memory) Record(ctx context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New(errors.ErrCodeJournalClosed, "journal is closed")
	}

	entry.Account = *entry.Account.Clone()
	m.entries = append(m.entries, entry)

	return nil
}

// Entries returns the recorded entries in order.
func (m *Memory) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]Entry, len(m.entries))
	copy(entries, m.entries)

	return entries
}

// Close implements Sink.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true

	return nil
}
