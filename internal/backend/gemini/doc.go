// Package gemini implements backend.Backend for Google's Gemini API.
package gemini
