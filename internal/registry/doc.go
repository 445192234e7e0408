// Package registry holds the immutable provider configuration of the gateway:
// which providers exist, which are enabled, the active provider, and the
// fallback chain of each role.
package registry
