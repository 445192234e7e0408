// Package handler implements the ops HTTP handlers of the gateway: the
// /health report combining probe results with circuit breaker states, and
// the request logging middleware wrapped around every ops route.
package handler
