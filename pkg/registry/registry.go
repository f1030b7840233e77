package registry

import (
	"sync"
)

// Registry maps (group, name, version) triples to capability objects. The
// registered value is opaque here, consumers type-assert it to the capability
// interface they expect. Registration happens during startup, lookups happen
// on the request path, so the map is guarded for the write-rarely read-often
// pattern.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]any
}

func New() *Registry {
	return &Registry{
		entries: make(map[string]any),
	}
}

func key(group, name, version string) string {
	return group + "/" + name + "/" + version
}

// Register stores a capability under the triple, replacing any previous
// registration.
func (r *Registry) Register(group, name, version string, capability any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key(group, name, version)] = capability
}

// Lookup resolves a capability, reporting whether the triple is registered.
func (r *Registry) Lookup(group, name, version string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	capability, found := r.entries[key(group, name, version)]
	return capability, found
}
