// Package openai provides OpenAI-compatible implementations of the ai
// package interfaces.
//
// The implementations work with any OpenAI-compatible API endpoint,
// including hosted OpenAI, Ollama, LocalAI, and vLLM. Embeddings and
// completions may be served from different hosts.
package openai
