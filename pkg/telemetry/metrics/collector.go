package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/veil/pkg/config"
)

// Request outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// overflowLabel replaces label values once the cardinality limit is hit.
const overflowLabel = "other"

// Collector owns every Prometheus metric the gateway exports. All Record
// methods are safe on a nil *Collector and are no-ops when metrics are
// disabled, so components can hold an optional collector.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	pipeline *PipelineMetrics
	provider *ProviderMetrics
	detector *DetectorMetrics
	vault    *VaultMetrics
	http     *HTTPMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector and registers its metrics. If registry
// is nil a fresh registry is used.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	mux.Handle("/metrics", collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{registry: registry, cardinalityLimiter: NewCardinalityLimiter(10000)}
	if cfg != nil {
		c.config = *cfg
	}
	if c.config.Namespace == "" {
		c.config.Namespace = config.DefaultMetricsNamespace
	}
	if len(c.config.RequestDurationBuckets) == 0 {
		// detection is milliseconds, completions are seconds
		c.config.RequestDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30}
	}

	c.pipeline = NewPipelineMetrics(&c.config, registry)
	c.provider = NewProviderMetrics(&c.config, registry)
	c.detector = NewDetectorMetrics(&c.config, registry)
	c.vault = NewVaultMetrics(&c.config, registry)
	c.http = NewHTTPMetrics(&c.config, registry)

	return c
}

func (c *Collector) enabled() bool {
	return c != nil && c.config.Enabled
}

// RecordRequest records a finished pipeline request. stage is empty on
// success and names the failing stage otherwise.
func (c *Collector) RecordRequest(provider, model, status, stage string, duration time.Duration) {
	if !c.enabled() {
		return
	}

	if !c.cardinalityLimiter.Allow(fmt.Sprintf("request:%s:%s", provider, model)) {
		model = overflowLabel
	}
	if stage == "" {
		stage = "none"
	}
	c.pipeline.RecordRequest(provider, model, status, stage, duration)
}

// RecordEntities records detected spans by entity type, and how many of
// each were redacted or kept verbatim.
func (c *Collector) RecordEntities(detected, redacted, kept map[string]int) {
	if !c.enabled() {
		return
	}
	c.pipeline.RecordEntities(detected, redacted, kept)
}

// RecordProviderRequest records one completion call.
func (c *Collector) RecordProviderRequest(provider, model string, latency time.Duration) {
	if !c.enabled() {
		return
	}
	if !c.cardinalityLimiter.Allow(fmt.Sprintf("provider:%s:%s", provider, model)) {
		model = overflowLabel
	}
	c.provider.RecordRequest(provider, model)
	c.provider.RecordLatency(provider, model, latency.Seconds())
}

// RecordProviderError records a failed completion call. errorType should be
// a sanitized category such as providers.Category returns.
func (c *Collector) RecordProviderError(provider, errorType string) {
	if !c.enabled() {
		return
	}
	c.provider.RecordError(provider, errorType)
}

// UpdateProviderHealth sets the provider health gauge (1 healthy, 0 not).
func (c *Collector) UpdateProviderHealth(provider string, healthy bool) {
	if !c.enabled() {
		return
	}
	c.provider.UpdateHealth(provider, healthy)
}

// RecordDetection records one detector call.
func (c *Collector) RecordDetection(backend string, latency time.Duration, err error) {
	if !c.enabled() {
		return
	}
	c.detector.RecordLatency(backend, latency.Seconds())
	if err != nil {
		c.detector.RecordError(backend)
	}
}

// UpdateVault sets the vault size gauges.
func (c *Collector) UpdateVault(sessions, entries int) {
	if !c.enabled() {
		return
	}
	c.vault.Update(sessions, entries)
}

// RecordSwept counts sessions removed by an expiry sweep.
func (c *Collector) RecordSwept(removed int) {
	if !c.enabled() {
		return
	}
	c.vault.RecordSwept(removed)
}

// RecordHTTPRequest records one HTTP exchange. route should be the
// registered pattern, not the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !c.enabled() {
		return
	}
	if !c.cardinalityLimiter.Allow("http:" + method + ":" + route) {
		route = overflowLabel
	}
	c.http.Record(method, route, strconv.Itoa(status), duration)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter caps the number of distinct label sets the collector
// will create.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter allowing maxCardinality label sets.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether labelSet is known or still fits under the limit.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
