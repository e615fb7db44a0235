package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-sim/pkg/errors"
)

// Factory builds a strategy from its configuration params.
type Factory func(params Params) (Strategy, error)

// Registry maps strategy names to factories.
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
	}
}

// NewDefaultRegistry creates a registry holding the built-in strategies.
func NewDefaultRegistry() *Registry {
	registry := NewRegistry()

	// names are distinct, registration cannot fail
	_ = registry.Register(BreakoutName, NewBreakoutFromParams)
	_ = registry.Register(MomentumCrossoverName, NewMomentumCrossoverFromParams)
	_ = registry.Register(VolatilityBandName, NewVolatilityBandFromParams)

	return registry
}

// Register adds a factory under name.
func (r *Registry) Register(name string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %s already registered", name)
	}

	r.factories[name] = factory

	return nil
}

// Create builds the strategy registered under name.
func (r *Registry) Create(name string, params Params) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	return factory(params)
}

// List returns the registered names in alphabetical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Remove deletes the factory registered under name.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[name]; !exists {
		return errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %s not found", name)
	}

	delete(r.factories, name)

	return nil
}
