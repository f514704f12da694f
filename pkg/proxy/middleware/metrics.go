package middleware

import (
	"net/http"
	"time"

	"mercator-hq/veil/pkg/telemetry/metrics"
)

// MetricsMiddleware records request count and latency under a fixed route
// label. Using the route pattern rather than r.URL.Path keeps session IDs
// out of label values. A nil collector disables recording.
func MetricsMiddleware(collector *metrics.Collector, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := newStatusRecorder(w)

			next.ServeHTTP(rw, r)

			collector.RecordHTTPRequest(r.Method, route, rw.Status(), time.Since(start))
		})
	}
}
