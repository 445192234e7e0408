package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/angeloszaimis/llm-gateway/internal/backend"
	"github.com/angeloszaimis/llm-gateway/internal/cache"
	"github.com/angeloszaimis/llm-gateway/internal/circuitbreaker"
	"github.com/angeloszaimis/llm-gateway/internal/metrics"
	"github.com/angeloszaimis/llm-gateway/internal/registry"
)

// Pseudo-provider labels for requests no real provider answered.
const (
	unknownRole        = "unknown"
	cacheProvider      = "cache"
	simulationProvider = "simulation"
	placeholderMetric  = "placeholder"
	offlineSuffix      = "-offline"
)

// Generate answers prompt with the first provider in the role's chain that
// succeeds. It never fails: when every provider is exhausted the Response
// is an offline answer carrying the last error in its metadata.
func (g *Gateway) Generate(ctx context.Context, prompt string, opts ...RequestOption) Response {
	req := request{
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(&req)
	}

	if req.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.timeout)
		defer cancel()
	}

	requestID := uuid.NewString()
	log := g.logger.With(
		slog.String("request_id", requestID),
		slog.String("role", req.role),
	)

	ctx, span := g.tracer.Start(ctx, "gateway.generate", trace.WithAttributes(
		attribute.String("llm.role", req.role),
		attribute.String("llm.request_id", requestID),
	))
	defer span.End()

	if resp, ok := g.simulate(prompt, req, log); ok {
		span.SetAttributes(attribute.Bool("llm.simulation", true))
		return resp
	}

	if !g.registry.HasConfiguration() {
		g.missingConfig.Do(func() {
			log.Warn("Running in placeholder mode", slog.Any("error", ErrConfigurationMissing))
		})
		return g.placeholder(prompt, req)
	}

	useCache := g.cache != nil
	key, err := cache.Key(cache.KeyParts{
		Prompt:       prompt,
		Role:         req.role,
		Temperature:  req.temperature,
		MaxTokens:    req.maxTokens,
		SystemPrompt: req.systemPrompt,
	})
	if err != nil {
		log.Warn("Bypassing response cache", slog.Any("error", err))
		useCache = false
	}
	if useCache {
		if cached, ok := g.cache.Get(key); ok {
			g.sink.RecordRequest(cacheProvider, roleLabel(req.role), metrics.StatusHit)
			span.SetAttributes(attribute.Bool("llm.cache_hit", true))
			log.Debug("Cache hit", slog.String("provider", cached.Provider))
			return cached
		}
	}

	start := g.clock.Now()
	chain := g.buildChain(req.role)
	log.Debug("Provider chain resolved", slog.Any("chain", providerNames(chain)))

	var lastErr error
	for i, p := range chain {
		if !g.healthy(p.Name) {
			log.Debug("Skipping unhealthy provider", slog.String("provider", p.Name))
			continue
		}

		cb, hasBreaker := g.breakers.Breaker(p.Name)
		if hasBreaker && !cb.ShouldAttempt() {
			log.Debug("Skipping provider with open circuit", slog.String("provider", p.Name))
			continue
		}

		resp, err := g.attempt(ctx, p, cb, prompt, req, requestID)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			// Lost the half-open probe slot to a concurrent request.
			continue
		}
		if err == nil {
			g.onSuccess(p.Name, req.role, resp, start)
			if useCache {
				g.cache.Set(key, resp)
			}
			span.SetAttributes(attribute.String("llm.provider", p.Name))
			return resp
		}

		lastErr = err
		g.sink.RecordRequest(p.Name, roleLabel(req.role), metrics.StatusError)
		reason := backend.Reason(err)
		if i+1 < len(chain) {
			g.sink.RecordFallback(p.Name, chain[i+1].Name, reason)
		}
		log.Warn("Provider call failed",
			slog.String("provider", p.Name),
			slog.String("reason", reason),
			slog.Any("error", err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	span.SetStatus(codes.Error, "providers exhausted")
	return g.degraded(ctx, prompt, req, lastErr, log)
}

func (g *Gateway) attempt(
	ctx context.Context,
	p registry.ProviderConfig,
	cb *circuitbreaker.CircuitBreaker,
	prompt string,
	req request,
	requestID string,
) (Response, error) {
	ctx, span := g.tracer.Start(ctx, "gateway.attempt", trace.WithAttributes(
		attribute.String("llm.provider", p.Name),
		attribute.String("llm.kind", p.Kind),
	))
	defer span.End()

	b, ok := g.backends[p.Name]
	if !ok {
		err := backend.Unconfigured(p.Name, "no client for provider")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Response{}, err
	}

	// Without configured models the backend falls back to its own default.
	var requested string
	if len(p.Models) > 0 {
		requested = p.Models[0]
	}
	model := p.DefaultModel()
	breq := backend.Request{
		Prompt:       prompt,
		SystemPrompt: req.systemPrompt,
		Role:         req.role,
		Model:        requested,
		Temperature:  req.temperature,
		MaxTokens:    req.maxTokens,
	}

	timeout := p.Timeout
	if timeout <= 0 {
		timeout = g.requestTimeout
	}

	var result *backend.Result
	call := func() error {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		var err error
		result, err = backend.Retry(callCtx, p.Retry, func(ctx context.Context) (*backend.Result, error) {
			return b.Generate(ctx, breq)
		})
		if err != nil && ctx.Err() != nil && !errors.Is(err, backend.ErrTimeout) {
			err = backend.Unavailable(p.Name, ctx.Err())
		}
		return err
	}

	var err error
	if cb != nil {
		err = cb.Execute(call)
	} else {
		err = call()
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, backend.Reason(err))
		return Response{}, err
	}

	if result.Model != "" {
		model = result.Model
	}
	usage := result.Usage
	return Response{
		Provider: p.Name,
		Model:    model,
		Text:     result.Text,
		Metadata: Metadata{
			Role:      req.role,
			RequestID: requestID,
			Usage:     &usage,
			Raw:       result.Raw,
		},
	}, nil
}

func (g *Gateway) onSuccess(provider, role string, resp Response, start time.Time) {
	label := roleLabel(role)
	g.sink.RecordRequest(provider, label, metrics.StatusSuccess)
	g.sink.ObserveLatency(provider, label, g.clock.Since(start))
	if resp.Metadata.Usage != nil {
		g.sink.RecordTokens(provider, resp.Metadata.Usage.PromptTokens, resp.Metadata.Usage.CompletionTokens)
	}

	if g.health == nil {
		return
	}
	if rec, ok := g.health.ProviderHealth(provider); ok {
		g.sink.SetProviderHealth(provider, rec.Status.Gauge())
		if rec.Latency > 0 {
			g.sink.SetProviderLatency(provider, rec.Latency)
		}
	}
}

// buildChain resolves the ordered candidates for role: the active provider,
// then the role's primary and chain, then the default provider if nothing
// else qualified. Duplicates, disabled and unhealthy providers are dropped.
func (g *Gateway) buildChain(role string) []registry.ProviderConfig {
	var chain []registry.ProviderConfig
	seen := make(map[string]struct{})

	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		p, ok := g.registry.Provider(name)
		if !ok || !p.Enabled || !g.healthy(name) {
			return
		}
		seen[name] = struct{}{}
		chain = append(chain, p)
	}

	if active, ok := g.registry.ActiveProvider(); ok {
		add(active.Name)
	}
	if role != "" {
		if fc, ok := g.registry.FallbackChain(role); ok {
			add(fc.Primary)
			for _, name := range fc.Chain {
				add(name)
			}
		}
	}
	if len(chain) == 0 {
		add(g.defaultProvider)
	}
	return chain
}

func (g *Gateway) healthy(name string) bool {
	if g.health == nil {
		return true
	}
	return g.health.IsProviderHealthy(name)
}

// degraded is reached once the chain is exhausted. The last-resort backend
// gets one try before the synthetic offline answer.
func (g *Gateway) degraded(ctx context.Context, prompt string, req request, lastErr error, log *slog.Logger) Response {
	if lastErr == nil {
		lastErr = ErrAllProvidersExhausted
	} else {
		lastErr = fmt.Errorf("%w: %w", ErrAllProvidersExhausted, lastErr)
	}
	log.Error("All providers failed", slog.Any("error", lastErr))

	label := roleLabel(req.role)
	if resp, ok := g.tryLastResort(ctx, prompt, req, log); ok {
		g.sink.RecordRequest(resp.Provider, label, metrics.StatusSuccess)
		return resp
	}

	g.sink.RecordRequest(offlineProvider, label, metrics.StatusError)
	return Response{
		Provider: offlineProvider,
		Model:    offlineModel,
		Text:     offlineText,
		Metadata: Metadata{
			Role:    req.role,
			Offline: true,
			Error:   lastErr.Error(),
		},
	}
}

func (g *Gateway) tryLastResort(ctx context.Context, prompt string, req request, log *slog.Logger) (Response, bool) {
	lr := g.lastResort
	if lr == nil || lr.backend == nil || ctx.Err() != nil {
		return Response{}, false
	}

	ctx, span := g.tracer.Start(ctx, "gateway.last_resort", trace.WithAttributes(
		attribute.String("llm.provider", lr.name),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, g.requestTimeout)
	defer cancel()

	result, err := lr.backend.Generate(ctx, backend.Request{
		Prompt:       prompt,
		SystemPrompt: DefaultSystemPrompt,
		Role:         req.role,
		Model:        lr.model,
		Temperature:  req.temperature,
		MaxTokens:    req.maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, backend.Reason(err))
		log.Warn("Last resort provider failed", slog.String("provider", lr.name), slog.Any("error", err))
		return Response{}, false
	}

	model := lr.model
	if result.Model != "" {
		model = result.Model
	}
	usage := result.Usage
	return Response{
		Provider: lr.name + offlineSuffix,
		Model:    model,
		Text:     result.Text,
		Metadata: Metadata{
			Role:     req.role,
			Usage:    &usage,
			Offline:  true,
			Fallback: true,
		},
	}, true
}

func (g *Gateway) simulate(prompt string, req request, log *slog.Logger) (Response, bool) {
	if g.simulator == nil {
		return Response{}, false
	}
	res, ok := g.simulator.Match(prompt, req.role)
	if !ok {
		return Response{}, false
	}

	log.Info("Serving simulated response", slog.String("scenario", res.Scenario))
	g.sink.RecordRequest(simulationProvider, roleLabel(req.role), metrics.StatusSuccess)
	return Response{
		Provider: res.Provider,
		Model:    res.Model,
		Text:     res.Text,
		Metadata: Metadata{
			Role:          req.role,
			Simulation:    true,
			Scenario:      res.Scenario,
			FallbackChain: res.FallbackChain,
			Extra:         res.Metadata,
		},
	}, true
}

func (g *Gateway) placeholder(prompt string, req request) Response {
	var fallback []string
	if fc, ok := g.registry.FallbackChain(req.role); ok {
		fallback = fc.Chain
	}

	g.sink.RecordRequest(placeholderMetric, roleLabel(req.role), metrics.StatusError)
	return Response{
		Provider: placeholderProvider,
		Model:    placeholderModel,
		Text:     placeholderText(prompt, fallback),
		Metadata: Metadata{
			Role:          req.role,
			Placeholder:   true,
			FallbackChain: fallback,
		},
	}
}

func roleLabel(role string) string {
	if role == "" {
		return unknownRole
	}
	return role
}

func providerNames(chain []registry.ProviderConfig) []string {
	names := make([]string, len(chain))
	for i, p := range chain {
		names[i] = p.Name
	}
	return names
}
