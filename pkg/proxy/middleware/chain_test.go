package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/proxy/types"
	"mercator-hq/veil/pkg/telemetry/metrics"
)

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("sets deadline", func(t *testing.T) {
		var deadline time.Time
		var ok bool
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deadline, ok = r.Context().Deadline()
		})

		TimeoutMiddleware(time.Minute)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		if !ok {
			t.Fatal("expected a deadline")
		}
		if time.Until(deadline) > time.Minute {
			t.Errorf("deadline too far: %v", deadline)
		}
	})

	t.Run("handler observes cancellation", func(t *testing.T) {
		var got error
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
			got = r.Context().Err()
			w.WriteHeader(http.StatusGatewayTimeout)
		})

		w := httptest.NewRecorder()
		TimeoutMiddleware(10*time.Millisecond)(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if !errors.Is(got, context.DeadlineExceeded) {
			t.Errorf("ctx.Err() = %v", got)
		}
		if w.Code != http.StatusGatewayTimeout {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("zero disables", func(t *testing.T) {
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Deadline(); ok {
				t.Error("unexpected deadline")
			}
		})
		TimeoutMiddleware(0)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestBodyLimitMiddleware(t *testing.T) {
	var readErr error
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	})
	wrapped := BodyLimitMiddleware(16)(handler)

	t.Run("declared length rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32))))

		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d", w.Code)
		}
		var body types.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error.Code != types.CodeRequestTooLarge {
			t.Errorf("code = %q", body.Error.Code)
		}
	})

	t.Run("undeclared length capped", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 32)))
		req.ContentLength = -1
		wrapped.ServeHTTP(httptest.NewRecorder(), req)

		var maxErr *http.MaxBytesError
		if !errors.As(readErr, &maxErr) {
			t.Errorf("read error = %v, want *http.MaxBytesError", readErr)
		}
	})

	t.Run("small body passes", func(t *testing.T) {
		readErr = nil
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("ok")))
		if readErr != nil || w.Code != http.StatusOK {
			t.Errorf("status = %d, err = %v", w.Code, readErr)
		}
	})
}

func TestMetricsMiddleware(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(&config.MetricsConfig{Enabled: true, Namespace: "test"}, registry)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	wrapped := MetricsMiddleware(collector, "/v1/sessions/{id}")(handler)

	for _, id := range []string{"a", "b", "c"} {
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+id, nil))
	}

	// One series regardless of how many session IDs were seen.
	n, err := testutil.GatherAndCount(registry, "test_http_requests_total")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("series = %d, want 1", n)
	}

	// A nil collector returns the handler unchanged.
	w := httptest.NewRecorder()
	MetricsMiddleware(nil, "/")(handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	var inner http.ResponseWriter
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = w
		w.WriteHeader(http.StatusNotFound)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("gone"))
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(handler).ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/v1/sessions/patient-42", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	rw, ok := inner.(*statusRecorder)
	if !ok {
		t.Fatalf("handler got %T", inner)
	}
	if rw.Status() != http.StatusNotFound || rw.bytes != 4 || rw.Unwrap() != w {
		t.Errorf("recorder status = %d, bytes = %d", rw.Status(), rw.bytes)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line: %v (%q)", err, buf.String())
	}
	if line["level"] != "WARN" || line["status"] != float64(404) {
		t.Errorf("log line = %v", line)
	}
	if line["path"] != "/v1/sessions/{id}" || strings.Contains(buf.String(), "patient-42") {
		t.Errorf("session ID leaked into log: %s", buf.String())
	}
}

func TestStatusRecorder_DefaultStatus(t *testing.T) {
	rw := newStatusRecorder(httptest.NewRecorder())
	if rw.Status() != http.StatusOK {
		t.Errorf("Status() = %d before any write", rw.Status())
	}
}

func TestCORSFromConfig(t *testing.T) {
	got := CORSFromConfig(config.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://app.example.com"},
	})
	if !got.Enabled || got.AllowedOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSFromConfig() = %+v", got)
	}
	if len(got.AllowedMethods) == 0 || got.MaxAge != 3600 {
		t.Errorf("defaults not applied: %+v", got)
	}

	if CORSFromConfig(config.CORSConfig{}).Enabled {
		t.Error("disabled config should stay disabled")
	}
}
