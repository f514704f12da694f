// Package server assembles and runs the Veil gateway.
//
// BuildComponents turns a *config.Config into the running parts:
//
//   - the session vault and its cron sweeper
//   - the configured detector (pattern, presidio or chain)
//   - the provider manager and the provider the pipeline uses
//   - the pipeline itself, wired to metrics, tracing and evidence
//   - the evidence storage, async recorder and retention pruner, when enabled
//   - the health checker with readiness probes for the detector, provider
//     and evidence store
//
// Server adds the HTTP listener. Routes:
//
//	POST   /v1/chat            pipeline round trip (API key when enabled)
//	POST   /v1/detect          detection only (API key when enabled)
//	DELETE /v1/sessions/{id}   drop a session mapping (API key when enabled)
//	GET    /health             liveness
//	GET    /ready              readiness
//	GET    /metrics            Prometheus, when metrics are enabled
//	GET    /                   service info
//
// # Lifecycle
//
//	srv, err := server.New(ctx, cfg, version)
//	if err != nil {
//	    return err
//	}
//	return srv.Start(ctx) // blocks; cancelling ctx shuts down
//
// Shutdown first drains HTTP requests, then stops the sweeper and the
// retention scheduler, flushes the evidence recorder, closes the evidence
// store and providers, and finally flushes the tracer. Closing the recorder
// before the store means no queued audit record is written to a closed
// database.
package server
