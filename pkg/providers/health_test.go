package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestHealthChecker_CircuitBreaker verifies that 3 consecutive failures mark provider unhealthy
func TestHealthChecker_CircuitBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "server error"}`))
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{
		Name:       "test-provider",
		Type:       TypeOpenAI,
		BaseURL:    server.URL,
		Timeout:    2 * time.Second,
		MaxRetries: 0,
	})

	if !provider.IsHealthy() {
		t.Fatal("expected provider to start healthy")
	}

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		if resp, err := provider.DoRequest(ctx, "GET", server.URL+"/test", nil, nil); err == nil {
			resp.Body.Close()
			t.Fatal("expected error from failing server")
		}

		health := provider.GetHealth()
		if health.ConsecutiveFailures != i {
			t.Errorf("after %d requests ConsecutiveFailures = %d", i, health.ConsecutiveFailures)
		}
		wantHealthy := i < 3
		if health.IsHealthy != wantHealthy {
			t.Errorf("after %d requests IsHealthy = %v, want %v", i, health.IsHealthy, wantHealthy)
		}
	}

	health := provider.GetHealth()
	if health.LastError == nil {
		t.Error("expected LastError to be set when unhealthy")
	}
	if health.TotalRequests != 3 || health.FailedRequests != 3 {
		t.Errorf("requests total=%d failed=%d, want 3/3", health.TotalRequests, health.FailedRequests)
	}
}

// TestHealthChecker_Recovery verifies that a success resets the failure count
func TestHealthChecker_Recovery(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{Name: "p", BaseURL: server.URL, Timeout: time.Second})
	ctx := context.Background()
	for range 3 {
		_ = provider.HealthCheck(ctx)
	}
	// HealthCheck goes through DoRequest, which records the failures.
	if provider.IsHealthy() {
		t.Fatal("expected unhealthy after 3 failures")
	}

	fail.Store(false)
	if err := provider.HealthCheck(ctx); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if !provider.IsHealthy() {
		t.Error("expected provider to recover")
	}
	if provider.GetHealth().ConsecutiveFailures != 0 {
		t.Error("expected failure count reset")
	}
}

func TestHealthChecker_CustomProbe(t *testing.T) {
	provider := NewHTTPProvider(ProviderConfig{Name: "p"})
	probeErr := errors.New("probe failed")
	provider.SetHealthProbe(func(ctx context.Context) error { return probeErr })

	if err := provider.HealthCheck(context.Background()); !errors.Is(err, probeErr) {
		t.Errorf("HealthCheck() = %v, want probe error", err)
	}
}

// TestHealthChecker_StopOnProviderClose verifies health checker stops when provider closes
func TestHealthChecker_StopOnProviderClose(t *testing.T) {
	var checkCount atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checkCount.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	provider := NewHTTPProvider(ProviderConfig{
		Name:                "test-provider",
		BaseURL:             server.URL,
		Timeout:             2 * time.Second,
		HealthCheckInterval: 50 * time.Millisecond,
	})
	provider.StartHealthChecker(context.Background())

	time.Sleep(200 * time.Millisecond)
	before := checkCount.Load()
	if before < 2 {
		t.Errorf("expected at least 2 health checks before close, got %d", before)
	}

	if err := provider.Close(); err != nil {
		t.Errorf("Close() returned error: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if after := checkCount.Load(); after > before+1 {
		t.Errorf("expected health checks to stop after Close(), before=%d after=%d", before, after)
	}
}

func TestHTTPProvider_CloseWithoutChecker(t *testing.T) {
	provider := NewHTTPProvider(ProviderConfig{Name: "p"})

	start := time.Now()
	if err := provider.Close(); err != nil {
		t.Fatal(err)
	}
	if err := provider.Close(); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Close() without a running checker took %s", elapsed)
	}

	// Starting after Close is a no-op.
	provider.StartHealthChecker(context.Background())
}

func TestCalculateBackoff(t *testing.T) {
	base := 10 * time.Second
	tests := []struct {
		failures int
		want     time.Duration
	}{
		{failures: 0, want: base},
		{failures: 1, want: 2 * base},
		{failures: 2, want: 4 * base},
		{failures: 3, want: 8 * base},
		{failures: 4, want: 10 * base},
		{failures: 50, want: 10 * base},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.failures, base); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %s, want %s", tt.failures, got, tt.want)
		}
	}

	if got := calculateBackoff(5, time.Minute); got != maxHealthBackoff {
		t.Errorf("calculateBackoff cap = %s, want %s", got, maxHealthBackoff)
	}
}
