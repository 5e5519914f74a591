// Package providers implements the Generator interface for each supported
// model backend.
//
// Supported backends: Anthropic (Claude), OpenAI (GPT), and Ollama / LM
// Studio for local models via the OpenAI-compatible chat endpoint.
//
// All backends share a retry helper with exponential back-off for rate
// limits and server errors. HTTP clients and base URLs live in struct fields
// so tests can point a backend at a local httptest server.
//
// Use [New] to obtain a Generator by backend name and model string.
package providers
