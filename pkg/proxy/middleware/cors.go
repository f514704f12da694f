package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"mercator-hq/veil/pkg/config"
)

// CORSConfig is the resolved cross-origin policy.
type CORSConfig struct {
	Enabled          bool
	AllowedOrigins   []string // "*" allows any origin
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	MaxAge           int // preflight cache, seconds
	AllowCredentials bool
}

// DefaultCORSConfig allows any origin to call the gateway routes and read
// the request and session ID headers.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", RequestIDHeader, "X-API-Key"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         3600,
	}
}

// CORSFromConfig converts the server's CORS settings. Empty lists fall back
// to DefaultCORSConfig values.
func CORSFromConfig(cfg config.CORSConfig) *CORSConfig {
	out := DefaultCORSConfig()
	out.Enabled = cfg.Enabled
	if len(cfg.AllowedOrigins) > 0 {
		out.AllowedOrigins = slices.Clone(cfg.AllowedOrigins)
	}
	if len(cfg.AllowedMethods) > 0 {
		out.AllowedMethods = slices.Clone(cfg.AllowedMethods)
	}
	if len(cfg.AllowedHeaders) > 0 {
		out.AllowedHeaders = slices.Clone(cfg.AllowedHeaders)
	}
	if cfg.MaxAge > 0 {
		out.MaxAge = cfg.MaxAge
	}
	return out
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or
// "" when the origin is not allowed. A wildcard policy answers "*" unless
// credentials are allowed, in which case the origin is reflected.
func (c *CORSConfig) allowOrigin(origin string) string {
	wildcard := slices.Contains(c.AllowedOrigins, "*")
	switch {
	case origin == "":
		if wildcard {
			return "*"
		}
		return ""
	case slices.Contains(c.AllowedOrigins, origin):
		return origin
	case wildcard && c.AllowCredentials:
		return origin
	case wildcard:
		return "*"
	}
	return ""
}

// CORSMiddleware sets cross-origin headers and answers preflight requests
// with 204. Preflights from origins outside the policy get 403.
func CORSMiddleware(cfg *CORSConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg == nil || !cfg.Enabled {
			return next
		}
		methods := strings.Join(cfg.AllowedMethods, ", ")
		headers := strings.Join(cfg.AllowedHeaders, ", ")
		exposed := strings.Join(cfg.ExposedHeaders, ", ")
		maxAge := strconv.Itoa(cfg.MaxAge)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := cfg.allowOrigin(origin)

			h := w.Header()
			h.Add("Vary", "Origin")
			if allowed != "" {
				h.Set("Access-Control-Allow-Origin", allowed)
				if cfg.AllowCredentials {
					h.Set("Access-Control-Allow-Credentials", "true")
				}
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
			}

			if r.Method != http.MethodOptions || r.Header.Get("Access-Control-Request-Method") == "" {
				next.ServeHTTP(w, r)
				return
			}

			if allowed == "" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if methods != "" {
				h.Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				h.Set("Access-Control-Allow-Headers", headers)
			}
			if cfg.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
