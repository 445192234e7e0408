package metrics

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type EventType string

const (
	EventRequest           EventType = "request"
	EventLatency           EventType = "latency"
	EventFallback          EventType = "fallback"
	EventTokens            EventType = "tokens"
	EventHealthChanged     EventType = "health_changed"
	EventProbeLatency      EventType = "probe_latency"
	EventBreakerTransition EventType = "breaker_transition"
)

type MetricEvent struct {
	Type      EventType
	Timestamp time.Time
	Provider  string
	Role      string
	Status    string
	Target    string
	Reason    string
	Duration  time.Duration
	Value     float64
	Count     int
}

// Collector is a Sink that aggregates events in memory on its own
// goroutine. Emitting never blocks; events are dropped when the buffer is
// full.
type Collector struct {
	eventCh chan MetricEvent
	metrics *Metrics
	logger  *slog.Logger
	dropped atomic.Uint64
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan MetricEvent, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	c.metrics.Seen(event.Timestamp)

	switch event.Type {
	case EventRequest:
		c.metrics.RecordRequest(event.Provider, event.Role, event.Status)

	case EventLatency:
		c.metrics.RecordLatency(event.Provider, event.Duration)

	case EventFallback:
		c.metrics.RecordFallback(event.Provider, event.Target, event.Reason)

	case EventTokens:
		c.metrics.RecordTokens(event.Provider, event.Count)

	case EventHealthChanged:
		c.metrics.UpdateHealth(event.Provider, event.Value)

	case EventProbeLatency:
		c.metrics.UpdateProbeLatency(event.Provider, event.Duration)

	case EventBreakerTransition:
		c.metrics.UpdateBreakerState(event.Provider, event.Status)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	snap := c.metrics.Snapshot()
	snap.DroppedEvents = c.dropped.Load()
	return snap
}

func (c *Collector) emit(event MetricEvent) {
	event.Timestamp = time.Now()
	select {
	case c.eventCh <- event:
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("Metrics buffer full, dropping events")
		}
	}
}

func (c *Collector) RecordRequest(provider, role, status string) {
	c.emit(MetricEvent{Type: EventRequest, Provider: provider, Role: role, Status: status})
}

func (c *Collector) ObserveLatency(provider, _ string, d time.Duration) {
	c.emit(MetricEvent{Type: EventLatency, Provider: provider, Duration: d})
}

func (c *Collector) RecordFallback(from, to, reason string) {
	c.emit(MetricEvent{Type: EventFallback, Provider: from, Target: to, Reason: reason})
}

func (c *Collector) RecordTokens(provider string, prompt, completion int) {
	c.emit(MetricEvent{Type: EventTokens, Provider: provider, Count: prompt + completion})
}

func (c *Collector) SetProviderHealth(provider string, value float64) {
	c.emit(MetricEvent{Type: EventHealthChanged, Provider: provider, Value: value})
}

func (c *Collector) SetProviderLatency(provider string, latency time.Duration) {
	c.emit(MetricEvent{Type: EventProbeLatency, Provider: provider, Duration: latency})
}

func (c *Collector) RecordBreakerTransition(provider, _, to string) {
	c.emit(MetricEvent{Type: EventBreakerTransition, Provider: provider, Status: to})
}
