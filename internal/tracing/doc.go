// Package tracing wires OpenTelemetry tracing for the gateway.
package tracing
