package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/veil/pkg/config"
)

// PipelineMetrics tracks tokenization pipeline requests.
//
// Metrics:
//   - veil_pipeline_requests_total: requests by provider, model, status, failed stage
//   - veil_pipeline_request_duration_seconds: end-to-end duration
//   - veil_entities_detected_total: detected spans by entity type
//   - veil_entities_redacted_total: spans replaced by placeholders
//   - veil_entities_kept_total: spans left verbatim (ages at or under the threshold)
type PipelineMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	detected *prometheus.CounterVec
	redacted *prometheus.CounterVec
	kept     *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers pipeline metrics.
func NewPipelineMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PipelineMetrics {
	pm := &PipelineMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "requests_total",
				Help:      "Total number of pipeline requests processed",
			},
			[]string{"provider", "model", "status", "stage"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "pipeline",
				Name:      "request_duration_seconds",
				Help:      "Duration of pipeline requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"provider", "status"},
		),

		detected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "entities_detected_total",
				Help:      "Total number of detected entities by type",
			},
			[]string{"entity_type"},
		),

		redacted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "entities_redacted_total",
				Help:      "Total number of entities replaced by placeholders",
			},
			[]string{"entity_type"},
		),

		kept: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "entities_kept_total",
				Help:      "Total number of detected entities left verbatim",
			},
			[]string{"entity_type"},
		),
	}

	registry.MustRegister(
		pm.requestsTotal,
		pm.requestDuration,
		pm.detected,
		pm.redacted,
		pm.kept,
	)

	return pm
}

// RecordRequest records a completed pipeline request.
func (pm *PipelineMetrics) RecordRequest(provider, model, status, stage string, duration time.Duration) {
	pm.requestsTotal.WithLabelValues(provider, model, status, stage).Inc()
	pm.requestDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

// RecordEntities adds per-type entity counts.
func (pm *PipelineMetrics) RecordEntities(detected, redacted, kept map[string]int) {
	addCounts(pm.detected, detected)
	addCounts(pm.redacted, redacted)
	addCounts(pm.kept, kept)
}

func addCounts(vec *prometheus.CounterVec, counts map[string]int) {
	for label, n := range counts {
		if n > 0 {
			vec.WithLabelValues(label).Add(float64(n))
		}
	}
}
