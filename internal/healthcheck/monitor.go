package healthcheck

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"
)

var ErrAlreadyStarted = errors.New("health monitor already started")

const (
	DefaultInterval          = 60 * time.Second
	DefaultProbeTimeout      = 10 * time.Second
	DefaultFailureThreshold  = 3
	DefaultRecoveryThreshold = 2
	DefaultConcurrency       = 8
)

// Prober checks one provider. backend.Backend satisfies it.
type Prober interface {
	Ping(ctx context.Context) (time.Duration, error)
}

// Reporter receives gauge updates after every probe.
type Reporter interface {
	SetProviderHealth(provider string, value float64)
	SetProviderLatency(provider string, latency time.Duration)
}

type Config struct {
	Interval          time.Duration
	ProbeTimeout      time.Duration
	FailureThreshold  int
	RecoveryThreshold int
	// Concurrency caps parallel probes within one cycle.
	Concurrency int
}

type entry struct {
	mu     sync.RWMutex
	prober Prober
	record Record
}

// Monitor probes every registered provider in the background and keeps a
// health record per provider. The set of providers is fixed at construction.
type Monitor struct {
	cfg      Config
	entries  map[string]*entry
	names    []string
	clock    clock.Clock
	logger   *slog.Logger
	reporter Reporter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Monitor)

func WithClock(clk clock.Clock) Option {
	return func(m *Monitor) {
		m.clock = clk
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) {
		m.logger = logger
	}
}

func WithReporter(r Reporter) Option {
	return func(m *Monitor) {
		m.reporter = r
	}
}

func NewMonitor(probers map[string]Prober, cfg Config, opts ...Option) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.RecoveryThreshold < 1 {
		cfg.RecoveryThreshold = DefaultRecoveryThreshold
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}

	m := &Monitor{
		cfg:     cfg,
		entries: make(map[string]*entry, len(probers)),
		clock:   clock.New(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	for name, p := range probers {
		m.entries[name] = &entry{prober: p}
		m.names = append(m.names, name)
	}
	sort.Strings(m.names)
	return m
}

// Start runs one probe cycle right away and then one every Interval until
// Stop is called or ctx ends. It does not block.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	ticker := m.clock.Ticker(m.cfg.Interval)
	go m.loop(ctx, ticker, m.done)

	m.logger.Info("Health monitor started",
		slog.Duration("interval", m.cfg.Interval),
		slog.Int("providers", len(m.names)))
	return nil
}

// Stop cancels the loop and waits for it to exit. It is safe to call on a
// monitor that was never started.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Info("Health monitor stopped")
}

func (m *Monitor) loop(ctx context.Context, ticker *clock.Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	m.CheckNow(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// CheckNow probes all providers concurrently and returns when every probe
// has finished or timed out.
func (m *Monitor) CheckNow(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)

	for _, name := range m.names {
		g.Go(func() error {
			m.probe(ctx, name)
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Monitor) probe(ctx context.Context, name string) {
	e := m.entries[name]

	probeCtx, cancel := context.WithTimeout(ctx, m.cfg.ProbeTimeout)
	latency, err := e.prober.Ping(probeCtx)
	cancel()

	// A probe cut short by shutdown says nothing about the provider.
	if ctx.Err() != nil {
		return
	}

	e.mu.Lock()
	prev := e.record.Status
	e.record.update(latency, err, m.clock.Now(), m.cfg.FailureThreshold, m.cfg.RecoveryThreshold)
	rec := e.record
	e.mu.Unlock()

	if m.reporter != nil {
		m.reporter.SetProviderHealth(name, rec.Status.Gauge())
		if err == nil {
			m.reporter.SetProviderLatency(name, latency)
		}
	}

	if prev == rec.Status {
		return
	}
	switch rec.Status {
	case StatusHealthy:
		m.logger.Info("Provider is up",
			slog.String("provider", name),
			slog.String("previous", prev.String()),
			slog.Duration("latency", latency))
	case StatusUnhealthy:
		m.logger.Warn("Provider is down",
			slog.String("provider", name),
			slog.Int("consecutive_failures", rec.ConsecutiveFailures),
			slog.String("error", rec.LastError))
	}
}

// IsProviderHealthy is false only for providers confirmed unhealthy.
// Unknown providers and providers without data count as healthy.
func (m *Monitor) IsProviderHealthy(name string) bool {
	rec, ok := m.ProviderHealth(name)
	return !ok || rec.Status != StatusUnhealthy
}

// HealthyProviders returns the sorted names of providers not confirmed
// unhealthy.
func (m *Monitor) HealthyProviders() []string {
	out := make([]string, 0, len(m.names))
	for _, name := range m.names {
		if m.IsProviderHealthy(name) {
			out = append(out, name)
		}
	}
	return out
}

func (m *Monitor) ProviderHealth(name string) (Record, bool) {
	e, ok := m.entries[name]
	if !ok {
		return Record{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.record, true
}

func (m *Monitor) Snapshot() map[string]Record {
	out := make(map[string]Record, len(m.entries))
	for name, e := range m.entries {
		e.mu.RLock()
		out[name] = e.record
		e.mu.RUnlock()
	}
	return out
}
