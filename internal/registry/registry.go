package registry

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/angeloszaimis/llm-gateway/config"
	"github.com/angeloszaimis/llm-gateway/internal/backend"
)

var (
	ErrDuplicateProvider = errors.New("duplicate provider")
	ErrUnknownProvider   = errors.New("unknown provider")
)

const unknownModel = "unknown-model"

// ProviderConfig describes one configured provider. It is not modified after
// the registry is built.
type ProviderConfig struct {
	Name       string
	Kind       string
	Enabled    bool
	Models     []string
	SelfHosted bool
	BaseURL    string
	APIKeyEnv  string
	Region     string
	Timeout    time.Duration
	// BreakerTimeout overrides the global open timeout when set.
	BreakerTimeout time.Duration
	Retry          backend.RetryPolicy
	Metadata       map[string]any
}

// DefaultModel is the first configured model.
func (p ProviderConfig) DefaultModel() string {
	if len(p.Models) == 0 {
		return unknownModel
	}
	return p.Models[0]
}

// FallbackChain is the ordered provider preference for one role.
type FallbackChain struct {
	Primary string
	Chain   []string
}

// Registry holds the provider set and the per-role fallback chains. It is
// read-only after New and safe for concurrent use without locking.
type Registry struct {
	providers map[string]ProviderConfig
	order     []string
	active    string
	chains    map[string]FallbackChain
}

// New validates that provider names are unique and that the active provider
// and every chain entry name a known provider.
func New(providers []ProviderConfig, active string, chains map[string]FallbackChain) (*Registry, error) {
	r := &Registry{
		providers: make(map[string]ProviderConfig, len(providers)),
		chains:    make(map[string]FallbackChain, len(chains)),
	}

	for _, p := range providers {
		if _, dup := r.providers[p.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProvider, p.Name)
		}
		r.providers[p.Name] = p
		r.order = append(r.order, p.Name)
	}

	if active != "" {
		if _, ok := r.providers[active]; !ok {
			return nil, fmt.Errorf("%w: active provider %s", ErrUnknownProvider, active)
		}
	}
	r.active = active

	for role, chain := range chains {
		if chain.Primary != "" {
			if _, ok := r.providers[chain.Primary]; !ok {
				return nil, fmt.Errorf("%w: %s in chain for role %s", ErrUnknownProvider, chain.Primary, role)
			}
		}
		for _, name := range chain.Chain {
			if _, ok := r.providers[name]; !ok {
				return nil, fmt.Errorf("%w: %s in chain for role %s", ErrUnknownProvider, name, role)
			}
		}
		r.chains[role] = FallbackChain{Primary: chain.Primary, Chain: append([]string(nil), chain.Chain...)}
	}

	return r, nil
}

// FromConfig builds the registry from the loaded configuration. Durations
// were validated by config.Validate.
func FromConfig(cfg *config.Config) (*Registry, error) {
	providers := make([]ProviderConfig, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, ProviderConfig{
			Name:           p.Name,
			Kind:           p.Kind,
			Enabled:        p.IsEnabled(),
			Models:         append([]string(nil), p.Models...),
			SelfHosted:     p.SelfHosted,
			BaseURL:        p.BaseURL,
			APIKeyEnv:      p.APIKeyEnv,
			Region:         p.Region,
			Timeout:        config.Duration(p.Timeout, 0),
			BreakerTimeout: config.Duration(p.BreakerTimeout, 0),
			Retry: backend.RetryPolicy{
				MaxAttempts: p.Retry.MaxAttempts,
				Backoff:     time.Duration(p.Retry.BackoffSeconds * float64(time.Second)),
			},
			Metadata: p.Metadata,
		})
	}

	chains := make(map[string]FallbackChain, len(cfg.FallbackChains))
	for role, c := range cfg.FallbackChains {
		chains[role] = FallbackChain{Primary: c.Primary, Chain: c.Chain}
	}

	return New(providers, cfg.Gateway.ActiveProvider, chains)
}

func (r *Registry) Provider(name string) (ProviderConfig, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// ActiveProvider is the configured active provider, else the first enabled
// one in configuration order.
func (r *Registry) ActiveProvider() (ProviderConfig, bool) {
	if r.active != "" {
		return r.Provider(r.active)
	}
	for _, name := range r.order {
		if p := r.providers[name]; p.Enabled {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

func (r *Registry) FallbackChain(role string) (FallbackChain, bool) {
	c, ok := r.chains[role]
	return c, ok
}

// HasConfiguration reports whether any provider was configured at all.
func (r *Registry) HasConfiguration() bool {
	return len(r.providers) > 0
}

// Enabled returns the enabled providers in configuration order.
func (r *Registry) Enabled() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(r.order))
	for _, name := range r.order {
		if p := r.providers[name]; p.Enabled {
			out = append(out, p)
		}
	}
	return out
}

// Names returns all provider names, sorted.
func (r *Registry) Names() []string {
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}
