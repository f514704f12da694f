package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/evidence"
	"mercator-hq/veil/pkg/proxy/types"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Server.ListenAddress = "127.0.0.1:0"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Providers = map[string]config.ProviderConfig{"echo": {Type: "echo"}}
	cfg.Pipeline.Provider = "echo"
	cfg.Evidence.Backend = "sqlite"
	cfg.Evidence.SQLite.Path = filepath.Join(t.TempDir(), "evidence.db")
	config.ApplyDefaults(cfg)
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := New(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func TestHandler_Routes(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	h := srv.Handler()

	tests := []struct {
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{http.MethodGet, "/", "", http.StatusOK},
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/ready", "", http.StatusOK},
		{http.MethodGet, "/metrics", "", http.StatusOK},
		{http.MethodPost, "/v1/detect", `{"text":"call 555-123-4567"}`, http.StatusOK},
		{http.MethodPost, "/v1/chat", `{"prompt":"call 555-123-4567"}`, http.StatusOK},
		{http.MethodDelete, "/v1/sessions/none", "", http.StatusOK},
		{http.MethodGet, "/missing", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestHandler_ChatRecordsEvidence(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	h := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(`{"prompt":"SSN 123-45-6789","session_id":"audit-1"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	c := srv.Components()
	if err := c.Recorder.Close(); err != nil {
		t.Fatalf("Recorder.Close() error = %v", err)
	}

	records, err := c.Evidence.Query(context.Background(), &evidence.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	r := records[0]
	if r.SessionHash == "audit-1" || r.SessionHash != evidence.HashSession("audit-1") {
		t.Errorf("SessionHash = %q", r.SessionHash)
	}
	if r.Status != evidence.StatusSuccess {
		t.Errorf("Status = %q", r.Status)
	}
}

func TestHandler_BodyLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxBodyBytes = 64
	h := newTestServer(t, cfg).Handler()

	body := `{"prompt":"` + strings.Repeat("a", 200) + `"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/chat", strings.NewReader(body)))

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestHandler_Auth(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.Auth.Enabled = true
	cfg.Security.Auth.Keys = []config.APIKeyConfig{{Key: "sk-test", UserID: "alice"}}
	h := newTestServer(t, cfg).Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/detect", strings.NewReader(`{"text":"hi"}`)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d", rec.Code)
	}
	var errResp types.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil || errResp.Error.Type != types.ErrorTypeAuthentication {
		t.Errorf("error body = %+v, err = %v", errResp, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set("Authorization", "Bearer sk-test")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status with key = %d", rec.Code)
	}

	// Probes stay open.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}
}

func TestBuildComponents_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"no providers", func(c *config.Config) {
			c.Providers = nil
			c.Pipeline.Provider = ""
		}},
		{"unknown provider", func(c *config.Config) { c.Pipeline.Provider = "missing" }},
		{"unknown detector", func(c *config.Config) { c.Detector.Backend = "crystal-ball" }},
		{"unknown placeholder", func(c *config.Config) { c.Vault.Placeholder = "sequential" }},
		{"unknown evidence backend", func(c *config.Config) { c.Evidence.Backend = "cassandra" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			if _, err := BuildComponents(context.Background(), cfg, "test"); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestBuildComponents_EvidenceDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Evidence.Enabled = false

	c, err := BuildComponents(context.Background(), cfg, "test")
	if err != nil {
		t.Fatalf("BuildComponents() error = %v", err)
	}
	defer c.Close(context.Background())

	if c.Evidence != nil || c.Recorder != nil || c.Pruner != nil {
		t.Error("evidence components should be nil when disabled")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for srv.Addr() == nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.Addr() == nil {
		t.Fatal("server did not start")
	}
	if !srv.IsRunning() {
		t.Error("IsRunning() = false")
	}
	if !srv.Components().Sweeper.IsRunning() {
		t.Error("vault sweeper should be running")
	}

	resp, err := http.Get("http://" + srv.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "healthy") {
		t.Errorf("GET /health = %d %s", resp.StatusCode, body)
	}

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start should fail")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Start did not return after cancel")
	}

	if srv.IsRunning() {
		t.Error("server still running after shutdown")
	}
	if srv.Components().Sweeper.IsRunning() {
		t.Error("sweeper still running after shutdown")
	}
}
