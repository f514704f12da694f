package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/veil/pkg/config"
)

// VaultMetrics tracks the token vault.
//
// Metrics:
//   - veil_vault_sessions: live sessions
//   - veil_vault_entries: placeholder mappings across all sessions
//   - veil_vault_swept_sessions_total: sessions removed by the expiry sweeper
type VaultMetrics struct {
	sessions prometheus.Gauge
	entries  prometheus.Gauge
	swept    prometheus.Counter
}

// NewVaultMetrics creates and registers vault metrics.
func NewVaultMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *VaultMetrics {
	vm := &VaultMetrics{
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "vault",
			Name:      "sessions",
			Help:      "Number of live vault sessions",
		}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "vault",
			Name:      "entries",
			Help:      "Number of placeholder mappings held in the vault",
		}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "vault",
			Name:      "swept_sessions_total",
			Help:      "Total number of expired sessions removed by the sweeper",
		}),
	}

	registry.MustRegister(vm.sessions, vm.entries, vm.swept)
	return vm
}

// Update sets the size gauges.
func (vm *VaultMetrics) Update(sessions, entries int) {
	vm.sessions.Set(float64(sessions))
	vm.entries.Set(float64(entries))
}

// RecordSwept adds removed to the sweep counter.
func (vm *VaultMetrics) RecordSwept(removed int) {
	if removed > 0 {
		vm.swept.Add(float64(removed))
	}
}

// HTTPMetrics tracks the HTTP surface.
//
// Metrics:
//   - veil_http_requests_total: requests by method, route, status code
//   - veil_http_request_duration_seconds: handler duration by route
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP handler duration in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(hm.requests, hm.duration)
	return hm
}

// Record records one HTTP exchange.
func (hm *HTTPMetrics) Record(method, route, code string, duration time.Duration) {
	hm.requests.WithLabelValues(method, route, code).Inc()
	hm.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}
