// Package metrics provides gateway telemetry through the Sink interface.
//
// Two sinks are provided and usually combined with Fanout:
//   - Prometheus exports counters, histograms and gauges on a private
//     registry, served by Prometheus.Handler at /metrics
//   - Collector aggregates the same events in memory through a buffered
//     channel and a dedicated goroutine, served as JSON at /stats
//
// The collector tracks per-provider request counts by status, latency
// percentiles (P50, P95, P99), token usage, health and breaker state, plus
// fallback counts between providers. Emitting never blocks the request path;
// events are dropped and counted when the buffer is full.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//	prom := metrics.NewPrometheus()
//	sink := metrics.Fanout{prom, collector}
//
//	sink.RecordRequest("gigachat", "code_generation", metrics.StatusSuccess)
//	snapshot := collector.Snapshot()
//
// The collector drains buffered events when its context is cancelled.
package metrics
