// Package healthcheck implements periodic health checking for LLM providers.
// A Monitor pings every provider on an interval and tracks its status with
// hysteresis: several failed probes mark it unhealthy, several successful
// ones bring it back.
package healthcheck
