package channel

import (
	"errors"
	"fmt"
	"sync"
)

// Registry holds all registered channel adapters. A kind without an adapter is
// not an error: the dispatcher treats it as native (stored only), so new
// channel kinds degrade gracefully instead of failing message creation.
type Registry struct {
	mu       sync.RWMutex
	adapters map[Kind]Adapter
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters: map[Kind]Adapter{},
	}
}

// Register adds an adapter to the registry.
func (r *Registry) Register(adapter Adapter) error {
	if adapter == nil {
		return errors.New("adapter is nil")
	}
	kind := normalizeKind(adapter.Kind().String())
	if kind == "" {
		return errors.New("channel kind is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.adapters[kind]; exists {
		return fmt.Errorf("channel kind already registered: %s", kind)
	}
	r.adapters[kind] = adapter
	return nil
}

// MustRegister calls Register and panics on error.
func (r *Registry) MustRegister(adapter Adapter) {
	if err := r.Register(adapter); err != nil {
		panic(err)
	}
}

// Get returns the adapter for the given kind.
func (r *Registry) Get(kind Kind) (Adapter, bool) {
	normalized := normalizeKind(kind.String())
	r.mu.RLock()
	defer r.mu.RUnlock()
	adapter, ok := r.adapters[normalized]
	return adapter, ok
}

// Kinds returns all registered channel kinds.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]Kind, 0, len(r.adapters))
	for kind := range r.adapters {
		items = append(items, kind)
	}
	return items
}
