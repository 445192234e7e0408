// Package ollama implements backend.Backend for a local Ollama server.
package ollama
