// Package logger provides structured logging with configurable log levels.
// It wraps log/slog: JSON output in production, text elsewhere, and every
// record carries the deployment environment.
package logger
