// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the gateway configuration: server and
// logging settings, health check and circuit breaker thresholds, the response
// cache, the provider list with their fallback chains, and tracing.
package config
