// Package ollama adapts a local Ollama server to providers.Provider using
// github.com/ollama/ollama/api. Requests are sent non-streaming to /api/chat;
// HealthCheck uses the client heartbeat.
package ollama
