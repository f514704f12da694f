// Package metrics exports Prometheus metrics for the tokenization gateway.
//
// # Metrics Categories
//
//   - Pipeline: request count and duration by status and failing stage
//   - Entities: detected, redacted and kept counts per entity type
//   - Providers: completion calls, latency, errors and health
//   - Detector: detection latency and errors per backend
//   - Vault: live sessions, entries and swept sessions
//   - HTTP: request count and duration per route
//
// Label values never carry prompt text, placeholders or session ids.
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	collector.RecordRequest("echo", "echo-1", metrics.StatusSuccess, "", time.Second)
//	collector.RecordEntities(
//		map[string]int{"US_SSN": 1, "AGE": 1},
//		map[string]int{"US_SSN": 1},
//		map[string]int{"AGE": 1},
//	)
//
// # Prometheus Endpoint
//
// Handler serves the collector's registry:
//
//	# HELP veil_pipeline_requests_total Total number of pipeline requests processed
//	# TYPE veil_pipeline_requests_total counter
//	veil_pipeline_requests_total{model="echo-1",provider="echo",stage="none",status="success"} 12
//
// # Cardinality Management
//
// The collector tracks distinct model and route label sets and folds new
// ones into "other" after 10,000.
package metrics
