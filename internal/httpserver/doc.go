// Package httpserver runs the gateway's ops endpoints (/metrics, /stats,
// /health) on a plain net/http server with graceful shutdown.
package httpserver
