package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mercator-hq/veil/pkg/config"
)

// ProviderMetrics covers calls to the upstream completion provider:
// veil_provider_health, veil_provider_latency_seconds,
// veil_provider_errors_total and veil_provider_requests_total.
type ProviderMetrics struct {
	health   *prometheus.GaugeVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	requests *prometheus.CounterVec
}

func NewProviderMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ProviderMetrics {
	f := promauto.With(registry)
	return &ProviderMetrics{
		health: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "provider_health",
			Help:      "Provider health status (1=healthy, 0=unhealthy)",
		}, []string{"provider"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "provider_latency_seconds",
			Help:      "Provider completion latency in seconds",
			Buckets:   cfg.RequestDurationBuckets,
		}, []string{"provider", "model"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "provider_errors_total",
			Help:      "Total number of provider errors by type",
		}, []string{"provider", "error_type"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of completion calls to each provider",
		}, []string{"provider", "model"}),
	}
}

func (pm *ProviderMetrics) UpdateHealth(provider string, healthy bool) {
	var v float64
	if healthy {
		v = 1
	}
	pm.health.WithLabelValues(provider).Set(v)
}

func (pm *ProviderMetrics) RecordLatency(provider, model string, seconds float64) {
	pm.latency.WithLabelValues(provider, model).Observe(seconds)
}

// RecordError counts one failure under its providers.Category label.
func (pm *ProviderMetrics) RecordError(provider, category string) {
	pm.errors.WithLabelValues(provider, category).Inc()
}

func (pm *ProviderMetrics) RecordRequest(provider, model string) {
	pm.requests.WithLabelValues(provider, model).Inc()
}

// DetectorMetrics covers detector backends: veil_detector_latency_seconds
// and veil_detector_errors_total, both labelled by backend.
type DetectorMetrics struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

func NewDetectorMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *DetectorMetrics {
	f := promauto.With(registry)
	return &DetectorMetrics{
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "detector_latency_seconds",
			Help:      "PII detection latency in seconds",
			Buckets:   cfg.RequestDurationBuckets,
		}, []string{"backend"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "detector_errors_total",
			Help:      "Total number of failed detections",
		}, []string{"backend"}),
	}
}

func (dm *DetectorMetrics) RecordLatency(backend string, seconds float64) {
	dm.latency.WithLabelValues(backend).Observe(seconds)
}

func (dm *DetectorMetrics) RecordError(backend string) {
	dm.errors.WithLabelValues(backend).Inc()
}
