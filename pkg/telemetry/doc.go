// Package telemetry groups the gateway's observability packages.
//
//   - logging: slog logger with PII redaction and request-scoped fields
//   - metrics: Prometheus collector for pipeline, vault, provider, detector and HTTP series
//   - tracing: OpenTelemetry spans exported over OTLP gRPC
//   - health: liveness and readiness handlers
//
// None of these packages ever receive prompt text or mapping values.
// Loggers still run every record through a Redactor in case a caller
// slips.
package telemetry
