package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/angeloszaimis/llm-gateway/config"
	"github.com/angeloszaimis/llm-gateway/internal/backend"
	"github.com/angeloszaimis/llm-gateway/internal/backend/anthropic"
	"github.com/angeloszaimis/llm-gateway/internal/backend/bedrock"
	"github.com/angeloszaimis/llm-gateway/internal/backend/gemini"
	"github.com/angeloszaimis/llm-gateway/internal/backend/ollama"
	"github.com/angeloszaimis/llm-gateway/internal/backend/openai"
	"github.com/angeloszaimis/llm-gateway/internal/cache"
	"github.com/angeloszaimis/llm-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/llm-gateway/internal/gateway"
	"github.com/angeloszaimis/llm-gateway/internal/healthcheck"
	"github.com/angeloszaimis/llm-gateway/internal/metrics"
	"github.com/angeloszaimis/llm-gateway/internal/registry"
	"github.com/angeloszaimis/llm-gateway/internal/simulation"
)

const eventBufferSize = 1024

// app holds the wired components shared by serve and generate.
type app struct {
	gateway   *gateway.Gateway
	monitor   *healthcheck.Monitor
	collector *metrics.Collector
	prom      *metrics.Prometheus
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app, error) {
	reg, err := registry.FromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	backends := initializeBackends(ctx, reg, log)

	prom := metrics.NewPrometheus()
	collector := metrics.NewCollector(eventBufferSize, log)
	sink := metrics.Fanout{prom, collector}

	probers := make(map[string]healthcheck.Prober, len(backends))
	for _, p := range reg.Enabled() {
		if b, ok := backends[p.Name]; ok {
			probers[p.Name] = b
		} else {
			probers[p.Name] = missingBackend(p.Name)
		}
	}
	monitor := healthcheck.NewMonitor(probers, healthcheck.Config{
		Interval:          config.Duration(cfg.HealthCheck.Interval, healthcheck.DefaultInterval),
		ProbeTimeout:      config.Duration(cfg.HealthCheck.ProbeTimeout, healthcheck.DefaultProbeTimeout),
		FailureThreshold:  cfg.HealthCheck.FailureThreshold,
		RecoveryThreshold: cfg.HealthCheck.RecoveryThreshold,
	},
		healthcheck.WithLogger(log),
		healthcheck.WithReporter(sink),
	)

	opts := []gateway.Option{
		gateway.WithLogger(log),
		gateway.WithMetrics(sink),
		gateway.WithHealthMonitor(monitor),
		gateway.WithDefaultProvider(cfg.Gateway.DefaultProvider),
		gateway.WithRequestTimeout(config.Duration(cfg.Gateway.RequestTimeout, gateway.DefaultRequestTimeout)),
		gateway.WithBreakerConfig(circuitbreaker.Config{
			FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
			SuccessThreshold: cfg.CircuitBreaker.SuccessThreshold,
			Timeout:          config.Duration(cfg.CircuitBreaker.Timeout, time.Minute),
		}),
	}

	if cfg.Cache.Enabled {
		responses, err := cache.New[gateway.Response](cache.Config{
			MaxSize:    cfg.Cache.MaxSize,
			DefaultTTL: config.Duration(cfg.Cache.DefaultTTL, 0),
			Shards:     cfg.Cache.Shards,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache: %w", err)
		}
		opts = append(opts, gateway.WithCache(responses))
	}

	if path := cfg.Gateway.SimulationFile; path != "" {
		overlay, err := simulation.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load simulation: %w", err)
		}
		if overlay.Active() {
			log.Warn("Simulation mode active", slog.String("file", path), slog.Int("scenarios", overlay.Scenarios()))
			opts = append(opts, gateway.WithSimulator(overlay))
		}
	}

	if lr := cfg.Gateway.LastResort; lr.Name != "" {
		b, err := createBackend(ctx, registry.ProviderConfig{
			Name:       lr.Name,
			Kind:       lr.Kind,
			Models:     []string{lr.Model},
			BaseURL:    lr.BaseURL,
			SelfHosted: true,
		})
		if err != nil {
			log.Warn("Last resort backend disabled", slog.String("name", lr.Name), slog.Any("err", err))
		} else {
			opts = append(opts, gateway.WithLastResort(lr.Name, lr.Model, b))
		}
	}

	return &app{
		gateway:   gateway.New(reg, backends, opts...),
		monitor:   monitor,
		collector: collector,
		prom:      prom,
	}, nil
}

// initializeBackends builds a client for every enabled provider. A provider
// whose client cannot be built is left out and reported as unconfigured by
// the gateway.
func initializeBackends(ctx context.Context, reg *registry.Registry, log *slog.Logger) map[string]backend.Backend {
	backends := make(map[string]backend.Backend)

	for _, p := range reg.Enabled() {
		b, err := createBackend(ctx, p)
		if err != nil {
			log.Error("Failed to create backend",
				slog.String("provider", p.Name),
				slog.String("kind", p.Kind),
				slog.Any("err", err))
			continue
		}
		backends[p.Name] = b
	}

	if len(backends) == 0 {
		log.Warn("No provider backends configured")
	}
	return backends
}

// missingBackend probes a provider whose client could not be built, so it
// still gets a health record.
type missingBackend string

func (m missingBackend) Ping(context.Context) (time.Duration, error) {
	return 0, backend.Unconfigured(string(m), "client not created")
}

func createBackend(ctx context.Context, p registry.ProviderConfig) (backend.Backend, error) {
	var apiKey string
	if p.APIKeyEnv != "" {
		apiKey = os.Getenv(p.APIKeyEnv)
	}
	var model string
	if len(p.Models) > 0 {
		model = p.Models[0]
	}

	switch p.Kind {
	case config.KindOpenAI:
		return openai.New(openai.Config{
			Name:        p.Name,
			BaseURL:     p.BaseURL,
			APIKey:      apiKey,
			Model:       model,
			Timeout:     p.Timeout,
			KeyOptional: p.SelfHosted,
		}), nil
	case config.KindOllama:
		return ollama.New(ollama.Config{
			Name:    p.Name,
			BaseURL: p.BaseURL,
			Model:   model,
			Timeout: p.Timeout,
		}), nil
	case config.KindAnthropic:
		return anthropic.New(anthropic.Config{
			Name:    p.Name,
			APIKey:  apiKey,
			Model:   model,
			BaseURL: p.BaseURL,
			Timeout: p.Timeout,
		}), nil
	case config.KindGemini:
		return gemini.New(ctx, gemini.Config{
			Name:   p.Name,
			APIKey: apiKey,
			Model:  model,
		})
	case config.KindBedrock:
		return bedrock.New(ctx, bedrock.Config{
			Name:   p.Name,
			Region: p.Region,
			Model:  model,
		})
	default:
		return nil, fmt.Errorf("unknown provider kind %q", p.Kind)
	}
}
