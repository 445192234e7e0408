// Package backend defines the contract every generation provider implements,
// the error taxonomy the gateway routes on, and the retry helper applied
// inside a single provider attempt.
//
// Concrete providers live in subpackages (openai, ollama, anthropic, gemini,
// bedrock) and are constructed by the process supervisor.
package backend
