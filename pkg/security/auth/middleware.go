package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/proxy/types"
	"mercator-hq/veil/pkg/telemetry/logging"
)

// APIKeySource is one place a key may arrive: a header, optionally behind
// an auth scheme such as "Bearer", or a query parameter.
type APIKeySource struct {
	Type   string // "header" or "query"
	Name   string
	Scheme string
}

// key returns the key this source carries in r, or "".
func (s APIKeySource) key(r *http.Request) string {
	switch s.Type {
	case "query":
		return r.URL.Query().Get(s.Name)
	case "header":
		v := r.Header.Get(s.Name)
		if s.Scheme == "" || v == "" {
			return v
		}
		scheme, key, ok := strings.Cut(v, " ")
		if !ok || !strings.EqualFold(scheme, s.Scheme) {
			return ""
		}
		return strings.TrimSpace(key)
	}
	return ""
}

// APIKeyMiddleware rejects requests without a valid key. Sources are
// tried in order and the first one carrying a key wins.
type APIKeyMiddleware struct {
	keys    APIKeyStore
	sources []APIKeySource
	logger  *slog.Logger
}

func NewAPIKeyMiddleware(keys APIKeyStore, sources []APIKeySource) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		keys:    keys,
		sources: sources,
		logger:  slog.Default().With("component", "auth"),
	}
}

// FromConfig returns nil when authentication is disabled.
func FromConfig(cfg config.AuthenticationConfig) *APIKeyMiddleware {
	if !cfg.Enabled {
		return nil
	}
	sources := make([]APIKeySource, len(cfg.Sources))
	for i, s := range cfg.Sources {
		sources[i] = APIKeySource{Type: s.Type, Name: s.Name, Scheme: s.Scheme}
	}
	return NewAPIKeyMiddleware(ValidatorFromConfig(cfg), sources)
}

// Handle authenticates each request before next. On success the caller's
// APIKeyInfo and user ID ride on the request context. A nil middleware
// passes everything through.
func (m *APIKeyMiddleware) Handle(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, err := m.authenticate(r)
		if err != nil {
			m.logger.WarnContext(r.Context(), "authentication failed",
				"reason", err.Error(),
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			writeUnauthorized(w, err)
			return
		}

		ctx := logging.WithUser(context.WithValue(r.Context(), apiKeyInfoKey{}, info), info.UserID)
		m.logger.DebugContext(ctx, "API key authenticated", "team_id", info.TeamID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *APIKeyMiddleware) authenticate(r *http.Request) (*APIKeyInfo, error) {
	for _, s := range m.sources {
		if key := s.key(r); key != "" {
			return m.keys.Validate(key)
		}
	}
	return nil, ErrMissingKey
}

func writeUnauthorized(w http.ResponseWriter, err error) {
	msg := "Invalid API key"
	if errors.Is(err, ErrMissingKey) {
		msg = "Missing API key"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(types.NewErrorResponse(msg, types.ErrorTypeAuthentication, "", "invalid_api_key"))
}

type apiKeyInfoKey struct{}

// GetAPIKeyInfo returns the caller authenticated by APIKeyMiddleware.
func GetAPIKeyInfo(ctx context.Context) (*APIKeyInfo, bool) {
	info, ok := ctx.Value(apiKeyInfoKey{}).(*APIKeyInfo)
	return info, ok
}
