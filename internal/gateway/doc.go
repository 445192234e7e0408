// Package gateway routes generation requests across LLM providers.
//
// For each request the gateway consults, in order:
//
//   - the simulation overlay, which answers scripted prompts directly
//   - the response cache
//   - the role's provider chain, skipping unhealthy providers and those
//     whose circuit breaker is open
//   - the last-resort backend, and finally a synthetic offline answer
//
// Generate never returns an error. Callers inspect Response.Metadata to tell
// a real answer from a degraded one. Without any provider configuration the
// gateway answers with a placeholder echoing the prompt.
package gateway
