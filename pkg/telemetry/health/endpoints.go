package health

import (
	"context"
	"encoding/json"
	"net/http"
)

// LivenessHandler serves GET /health. It always answers 200 while the
// process can serve HTTP at all.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return probeHandler(func(ctx context.Context) (int, HealthStatus) {
		return http.StatusOK, c.CheckLiveness(ctx)
	})
}

// ReadinessHandler serves GET /ready. Every registered check runs; any
// failure turns the answer into 503 with that check's message:
//
//	{"status":"degraded","checks":{"vault":{"status":"ok","duration_ms":0.02},
//	 "detector.presidio":{"status":"unhealthy","message":"presidio returned status 503","duration_ms":4.1}},
//	 "timestamp":"2026-01-20T10:30:00Z"}
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return probeHandler(func(ctx context.Context) (int, HealthStatus) {
		s := c.CheckReadiness(ctx)
		if s.Status != StatusReady {
			return http.StatusServiceUnavailable, s
		}
		return http.StatusOK, s
	})
}

// probeHandler answers GET and HEAD with the JSON status; HEAD gets only
// the status line.
func probeHandler(check func(context.Context) (int, HealthStatus)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		code, status := check(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(code)
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(status)
		}
	}
}
