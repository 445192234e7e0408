// Package openai implements backend.Backend for OpenAI-compatible chat
// completion endpoints, including self-hosted servers that speak the same API.
package openai
