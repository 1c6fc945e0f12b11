package dicontainer

import (
	"slices"
	"sync"
)

// ── Descriptor store ──────────────────────────────────────────────────────────

// registry maps each ServiceKey to its Descriptor. It is mutable until frozen
// (which Build does), then read-only for the container's lifetime, so scopes
// and resolutions share it without coordination beyond the read lock.
type registry struct {
	mu     sync.RWMutex
	descs  map[ServiceKey]*Descriptor
	frozen bool
}

func newRegistry() *registry {
	return &registry{descs: make(map[ServiceKey]*Descriptor)}
}

// register validates d and inserts or replaces the descriptor for d.Key.
// Re-registration before freeze replaces silently; dependencies may be
// registered in any order, including after their dependents.
func (r *registry) register(d *Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return &ConfigurationError{Key: d.Key, Reason: "container is already built; registrations are frozen"}
	}
	r.descs[d.Key] = d.clone()
	return nil
}

// lookup returns the descriptor for key, if any.
func (r *registry) lookup(key ServiceKey) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[key]
	return d, ok
}

// contains reports whether key has a registration.
func (r *registry) contains(key ServiceKey) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.descs[key]
	return ok
}

// freeze marks the store read-only. Registrations after freeze fail with a
// ConfigurationError; lookups are unaffected.
func (r *registry) freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

func (r *registry) isFrozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// keys returns every registered key, sorted for deterministic iteration.
func (r *registry) keys() []ServiceKey {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServiceKey, 0, len(r.descs))
	for k := range r.descs {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descs)
}
