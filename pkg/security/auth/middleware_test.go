package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/proxy/types"
	"mercator-hq/veil/pkg/telemetry/logging"
)

func newTestMiddleware() *APIKeyMiddleware {
	v := NewAPIKeyValidator([]*APIKeyInfo{
		{Key: "sk-valid", UserID: "alice", TeamID: "care", Enabled: true},
		{Key: "sk-disabled", UserID: "bob", Enabled: false},
	})
	return NewAPIKeyMiddleware(v, []APIKeySource{
		{Type: "header", Name: "Authorization", Scheme: "Bearer"},
		{Type: "header", Name: "X-API-Key"},
		{Type: "query", Name: "api_key"},
	})
}

func TestAPIKeyMiddleware_Handle(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*http.Request)
		wantStatus int
		wantUser   string
	}{
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer sk-valid") }, http.StatusOK, "alice"},
		{"bearer lowercase scheme", func(r *http.Request) { r.Header.Set("Authorization", "bearer sk-valid") }, http.StatusOK, "alice"},
		{"custom header", func(r *http.Request) { r.Header.Set("X-API-Key", "sk-valid") }, http.StatusOK, "alice"},
		{"query", func(r *http.Request) { r.URL.RawQuery = "api_key=sk-valid" }, http.StatusOK, "alice"},
		{"missing", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic sk-valid") }, http.StatusUnauthorized, ""},
		{"unknown", func(r *http.Request) { r.Header.Set("Authorization", "Bearer sk-other") }, http.StatusUnauthorized, ""},
		{"disabled", func(r *http.Request) { r.Header.Set("X-API-Key", "sk-disabled") }, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotLogUser string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if info, ok := GetAPIKeyInfo(r.Context()); ok {
					gotUser = info.UserID
				}
				gotLogUser = logging.GetUser(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/v1/chat", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			newTestMiddleware().Handle(next).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser || gotLogUser != tt.wantUser {
				t.Errorf("user = %q / %q, want %q", gotUser, gotLogUser, tt.wantUser)
			}
			if tt.wantStatus == http.StatusUnauthorized {
				var body types.ErrorResponse
				if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if body.Error.Type != types.ErrorTypeAuthentication {
					t.Errorf("error type = %q", body.Error.Type)
				}
			}
		})
	}
}

func TestFromConfig(t *testing.T) {
	if m := FromConfig(config.AuthenticationConfig{Enabled: false}); m != nil {
		t.Fatal("disabled auth should give a nil middleware")
	}

	// A nil middleware passes through.
	var m *APIKeyMiddleware
	rec := httptest.NewRecorder()
	m.Handle(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want pass-through", rec.Code)
	}

	m = FromConfig(config.AuthenticationConfig{
		Enabled: true,
		Sources: []config.APIKeySource{{Type: "header", Name: "X-API-Key"}},
		Keys:    []config.APIKeyConfig{{Key: "k", UserID: "svc"}},
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "k")
	rec = httptest.NewRecorder()
	m.Handle(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {})).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
