package journal

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/rxtech-lab/argo-sim/internal/logger"
	"github.com/rxtech-lab/argo-sim/pkg/errors"
	"go.uber.org/zap"
)

// Registry shares one DuckDB journal per database path between concurrent runs.
// Each Open must be paired with a Close on the returned handle; the database is closed
// when the last handle is released.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*registryEntry
	logger  *logger.Logger
}

type registryEntry struct {
	journal *DuckDB
	refs    int
}

// Handle is a reference to a shared journal. Closing it releases the reference only.
type Handle struct {
	*DuckDB
	registry *Registry
	key      string
	once     sync.Once
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNop()
	}

	return &Registry{
		entries: make(map[string]*registryEntry),
		logger:  log,
	}
}

// Open returns a handle to the journal at path, opening it on first use.
func (r *Registry) Open(ctx context.Context, path string) (*Handle, error) {
	key := path
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to resolve journal path", err)
		}

		key = abs
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		journal, err := NewDuckDB(ctx, path, r.logger)
		if err != nil {
			return nil, err
		}

		entry = &registryEntry{journal: journal}
		r.entries[key] = entry

		r.logger.Debug("Opened journal", zap.String("path", key))
	}

	entry.refs++

	return &Handle{DuckDB: entry.journal, registry: r, key: key}, nil
}

// Refs returns the number of open handles for path.
func (r *Registry) Refs(path string) int {
	key := path
	if path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			key = abs
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[key]; ok {
		return entry.refs
	}

	return 0
}

// Close closes every journal regardless of open handles.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error

	for key, entry := range r.entries {
		if err := entry.journal.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(r.entries, key)
	}

	return firstErr
}

func (r *Registry) release(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		return nil
	}

	entry.refs--
	if entry.refs > 0 {
		return nil
	}

	delete(r.entries, key)

	r.logger.Debug("Closed journal", zap.String("path", key))

	return entry.journal.Close()
}

// Close releases the handle. Only the first call has an effect.
func (h *Handle) Close() error {
	var err error

	h.once.Do(func() {
		err = h.registry.release(h.key)
	})

	return err
}
