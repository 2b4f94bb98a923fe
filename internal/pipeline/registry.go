package pipeline

import (
	"sort"
	"sync"
)

// Registry holds the health trackers of every running component. It backs
// the health endpoint and the admin status API.
type Registry struct {
	mu      sync.RWMutex
	healths map[string]*ComponentHealth
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{healths: make(map[string]*ComponentHealth)}
}

func registryKey(component, network string) string {
	return component + ":" + network
}

// Track returns the health tracker for component/network, creating it on
// first use.
func (r *Registry) Track(component, network string) *ComponentHealth {
	key := registryKey(component, network)
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.healths[key]; ok {
		return h
	}
	h := NewComponentHealth(component, network)
	r.healths[key] = h
	return h
}

// Get returns the tracker for component/network, or nil if not found.
func (r *Registry) Get(component, network string) *ComponentHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healths[registryKey(component, network)]
}

// Snapshots returns all trackers ordered by component then network.
func (r *Registry) Snapshots() []HealthSnapshot {
	r.mu.RLock()
	out := make([]HealthSnapshot, 0, len(r.healths))
	for _, h := range r.healths {
		out = append(out, h.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		return out[i].Network < out[j].Network
	})
	return out
}

// Healthy reports false when any component is UNHEALTHY.
func (r *Registry) Healthy() bool {
	for _, snap := range r.Snapshots() {
		if snap.Status == string(HealthStatusUnhealthy) {
			return false
		}
	}
	return true
}
