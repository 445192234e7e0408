package gateway

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
	"github.com/angeloszaimis/llm-gateway/internal/cache"
	"github.com/angeloszaimis/llm-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/llm-gateway/internal/healthcheck"
	"github.com/angeloszaimis/llm-gateway/internal/metrics"
	"github.com/angeloszaimis/llm-gateway/internal/registry"
	"github.com/angeloszaimis/llm-gateway/internal/simulation"
	"github.com/angeloszaimis/llm-gateway/internal/tracing"
	"github.com/angeloszaimis/llm-gateway/pkg/logger"
)

// HealthChecker is the read side of the health monitor.
type HealthChecker interface {
	IsProviderHealthy(name string) bool
	ProviderHealth(name string) (healthcheck.Record, bool)
}

// Simulator returns scripted answers that bypass every provider.
type Simulator interface {
	Match(prompt, role string) (simulation.Result, bool)
}

type lastResort struct {
	name    string
	model   string
	backend backend.Backend
}

// Gateway routes prompts through the configured providers. It is safe for
// concurrent use; all mutable state lives in the breakers, the cache, the
// health monitor and the metrics sink.
type Gateway struct {
	registry *registry.Registry
	backends map[string]backend.Backend

	breakers      *circuitbreaker.Registry
	breakerConfig circuitbreaker.Config
	health        HealthChecker
	cache         *cache.Cache[Response]
	sink          metrics.Sink
	simulator     Simulator
	lastResort    *lastResort

	defaultProvider string
	requestTimeout  time.Duration

	logger *slog.Logger
	clock  clock.Clock
	tracer trace.Tracer

	missingConfig sync.Once
}

func New(reg *registry.Registry, backends map[string]backend.Backend, opts ...Option) *Gateway {
	g := &Gateway{
		registry:        reg,
		backends:        backends,
		breakerConfig:   defaultBreakerConfig,
		sink:            metrics.Nop{},
		defaultProvider: "openai",
		requestTimeout:  DefaultRequestTimeout,
		clock:           clock.New(),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.logger = logger.Component(g.logger, "gateway")
	if g.tracer == nil {
		g.tracer = tracing.Tracer()
	}
	if g.breakers == nil {
		g.breakers = g.newBreakers()
	}
	return g
}

// Breakers exposes the per-provider breakers for the ops endpoints.
func (g *Gateway) Breakers() *circuitbreaker.Registry {
	return g.breakers
}

// CacheStats reports the response cache counters, zero when caching is off.
func (g *Gateway) CacheStats() cache.Stats {
	if g.cache == nil {
		return cache.Stats{}
	}
	return g.cache.Stats()
}

func (g *Gateway) newBreakers() *circuitbreaker.Registry {
	var names []string
	overrides := make(map[string]circuitbreaker.Config)
	for _, p := range g.registry.Enabled() {
		names = append(names, p.Name)
		if p.BreakerTimeout > 0 {
			cfg := g.breakerConfig
			cfg.Timeout = p.BreakerTimeout
			overrides[p.Name] = cfg
		}
	}

	return circuitbreaker.NewRegistry(names, g.breakerConfig, overrides,
		circuitbreaker.WithClock(g.clock),
		circuitbreaker.WithIgnoredErrors(func(err error) bool {
			return errors.Is(err, backend.ErrUnconfigured)
		}),
		circuitbreaker.WithStateChangeHook(g.onBreakerTransition),
	)
}

func (g *Gateway) onBreakerTransition(name string, from, to circuitbreaker.State) {
	g.sink.RecordBreakerTransition(name, from.String(), to.String())

	level := slog.LevelInfo
	if to == circuitbreaker.StateOpen {
		level = slog.LevelWarn
	}
	g.logger.Log(context.Background(), level, "Circuit breaker state changed",
		slog.String("provider", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()),
	)
}
