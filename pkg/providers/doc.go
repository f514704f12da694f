// Package providers defines the completion backend abstraction used by the
// tokenization pipeline.
//
// # Overview
//
// The pipeline only ever hands sanitized text to a Provider. Adapters live in
// subpackages (openai, anthropic, gemini, ollama, echo) and are built from
// configuration by the providerfactory package.
//
// # Architecture
//
//  1. Provider interface - the contract every adapter implements
//  2. HTTPProvider - shared HTTP client logic: pooling, retries with
//     exponential backoff, status-to-error mapping, health tracking
//  3. Adapters - request and response translation per vendor API
//
// # Error Handling
//
// Failures are reported with typed errors so callers can use errors.As:
//
//	var rateErr *providers.RateLimitError
//	if errors.As(err, &rateErr) {
//	    time.Sleep(rateErr.RetryAfter)
//	}
//
// A successful HTTP exchange whose completion carries no text is an
// *EmptyResponseError. Category maps any of these errors to a short label
// that is safe to log or return to clients.
//
// # Health Monitoring
//
// After three consecutive failures a provider is marked unhealthy. The
// optional background checker (StartHealthChecker) keeps probing with
// exponential backoff and marks the provider healthy again on success.
package providers
