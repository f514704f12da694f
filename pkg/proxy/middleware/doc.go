// Package middleware provides HTTP middleware for cross-cutting concerns.
//
// # Middleware Chain
//
// The server wraps the mux in this order (outermost first):
//
//	Recovery(RequestID(Logging(CORS(BodyLimit(Timeout(mux))))))
//
// Each route is additionally wrapped with MetricsMiddleware and the tracing
// middleware under its route pattern, so labels and span names never carry
// path parameters such as session IDs.
//
// # Middleware Types
//
// Request tracking:
//   - RequestIDMiddleware: reuse a well-formed X-Request-ID or generate a
//     UUID, store it with logging.WithRequestID
//   - LoggingMiddleware: one structured line per request
//   - MetricsMiddleware: request count and latency per route
//
// Limits and resilience:
//   - BodyLimitMiddleware: cap request bodies, 413 on declared overflow
//   - TimeoutMiddleware: context deadline for the whole request
//   - RecoveryMiddleware: convert panics to 500 responses
//   - CORSMiddleware: cross-origin headers and preflight
//
// # Logging
//
// Log lines carry method, path, status, size and duration; the request ID
// and caller are added from the context by the logging handler. Session
// routes are logged as /v1/sessions/{id}. Bodies are never logged:
//
//	{
//	  "time": "2026-10-01T10:30:00Z",
//	  "level": "INFO",
//	  "msg": "request completed",
//	  "method": "POST",
//	  "path": "/v1/chat",
//	  "status": 200,
//	  "bytes": 912,
//	  "duration_ms": 1250,
//	  "request_id": "550e8400-e29b-41d4-a716-446655440000"
//	}
//
// # Timeout
//
// TimeoutMiddleware only sets a deadline. The handler keeps the response
// writer, and a deadline hit inside the pipeline surfaces as a 504 through
// the normal error mapping.
//
// # CORS
//
// CORS settings come from the server configuration:
//
//	server:
//	  cors:
//	    enabled: true
//	    allowed_origins: ["https://app.example.com"]
//	    allowed_methods: ["GET", "POST", "DELETE", "OPTIONS"]
//	    max_age: 3600
package middleware
