package circuitbreaker

import (
	"sort"
)

// Registry holds one breaker per provider. The set is fixed at construction,
// so lookups need no locking.
type Registry struct {
	breakers map[string]*CircuitBreaker
}

// NewRegistry creates a breaker for every name. overrides replaces the
// default config for individual providers.
func NewRegistry(names []string, defaults Config, overrides map[string]Config, opts ...Option) *Registry {
	r := &Registry{
		breakers: make(map[string]*CircuitBreaker, len(names)),
	}

	for _, name := range names {
		if _, exists := r.breakers[name]; exists {
			continue
		}
		cfg := defaults
		if o, ok := overrides[name]; ok {
			cfg = o
		}
		r.breakers[name] = NewCircuitBreaker(name, cfg, opts...)
	}

	return r
}

// Breaker returns the breaker for a provider, or false for providers that
// were not enabled at startup.
func (r *Registry) Breaker(name string) (*CircuitBreaker, bool) {
	cb, ok := r.breakers[name]
	return cb, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset closes every breaker in place.
func (r *Registry) Reset() {
	for _, cb := range r.breakers {
		cb.Reset()
	}
}

func (r *Registry) Stats() map[string]Counts {
	stats := make(map[string]Counts, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.Counts()
	}
	return stats
}
