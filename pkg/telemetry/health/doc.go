// Package health serves the liveness and readiness endpoints.
//
// /health always answers {"status": "healthy"} while the process runs.
// /ready runs every registered CheckFunc concurrently, each bounded by the
// checker timeout, and answers 503 with status "degraded" if any fails.
// The server registers a check for the provider manager and, for the
// presidio and chain backends, for the Presidio analyzer.
package health
