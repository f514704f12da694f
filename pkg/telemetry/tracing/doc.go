// Package tracing provides OpenTelemetry tracing for the gateway.
//
// Spans are exported over OTLP gRPC when telemetry.tracing.enabled is set;
// otherwise every Start returns a noop span. The pipeline opens one span
// per stage:
//
//	pipeline.process
//	├── pipeline.detect
//	├── pipeline.tokenize
//	├── pipeline.provider
//	└── pipeline.detokenize
//
// Attributes are limited to counts and labels (see the Attr constants).
// Failures are recorded with a sanitized category as the status
// description, never with raw error text.
//
// # Usage
//
//	tracer, err := tracing.New(ctx, &cfg.Telemetry.Tracing, version)
//	if err != nil {
//		return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "pipeline.detect")
//	defer span.End()
//
// Incoming W3C traceparent headers are honoured by HTTPMiddleware.
package tracing
