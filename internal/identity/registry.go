// Package identity maps natural keys from the raw input (reviewer ids, item
// ids) to generated surrogate UUIDs. A Registry lives for exactly one ETL run
// and is shared by all chunk workers.
package identity

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is a concurrency-safe natural-key → surrogate-id map.
//
// The check-and-insert is a single critical section, so a natural key resolves
// to exactly one surrogate id for the lifetime of the registry no matter how
// many workers observe it concurrently.
type Registry struct {
	mu  sync.Mutex
	ids map[string]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]string)}
}

// RegisterIfAbsent returns the surrogate id for key and whether this call
// created it. The candidate UUID is generated outside the critical section;
// when the key is already registered the candidate is discarded.
func (r *Registry) RegisterIfAbsent(key string) (id string, wasNew bool) {
	candidate := uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.ids[key]; ok {
		return existing, false
	}
	r.ids[key] = candidate
	return candidate, true
}

// Lookup returns the surrogate id registered for key, if any.
func (r *Registry) Lookup(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.ids[key]
	return id, ok
}

// Len returns the number of registered keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
