package detectorfactory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/detector"
)

func TestNew_Pattern(t *testing.T) {
	d, err := New(context.Background(), config.DetectorConfig{Backend: "pattern"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(d.Entities) != len(detector.DefaultEntities) {
		t.Errorf("entities = %v, want defaults", d.Entities)
	}
	if len(d.Checks) != 0 {
		t.Errorf("pattern backend should have no remote checks")
	}

	spans, err := d.Detect(context.Background(), "SSN 123-45-6789", d.Entities)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, s := range spans {
		found = found || s.Type == detector.EntitySSN
	}
	if !found {
		t.Errorf("no SSN span in %+v", spans)
	}
}

func TestNew_Chain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/analyze":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[{"entity_type":"PERSON","start":0,"end":4,"score":0.85}]`))
		case "/health":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	d, err := New(context.Background(), config.DetectorConfig{
		Backend:  "chain",
		Presidio: config.PresidioConfig{URL: server.URL},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	spans, err := d.Detect(context.Background(), "John, SSN 123-45-6789", d.Entities)
	if err != nil {
		t.Fatal(err)
	}
	var person, ssn bool
	for _, s := range spans {
		person = person || s.Type == detector.EntityPerson
		ssn = ssn || s.Type == detector.EntitySSN
	}
	if !person || !ssn {
		t.Errorf("expected spans from both detectors, got %+v", spans)
	}

	check, ok := d.Checks["presidio"]
	if !ok {
		t.Fatal("missing presidio readiness check")
	}
	if err := check(context.Background()); err != nil {
		t.Errorf("health check error = %v", err)
	}
}

func TestNew_MinScore(t *testing.T) {
	d, err := New(context.Background(), config.DetectorConfig{
		Backend:  "pattern",
		Entities: []string{detector.EntitySSN},
		MinScore: 0.9,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Without a context word the SSN recognizer scores 0.85.
	spans, err := d.Detect(context.Background(), "ref 123-45-6789", d.Entities)
	if err != nil {
		t.Fatal(err)
	}
	if len(spans) != 0 {
		t.Errorf("expected low-score spans dropped, got %+v", spans)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DetectorConfig
	}{
		{name: "unknown backend", cfg: config.DetectorConfig{Backend: "spacy"}},
		{name: "presidio without url", cfg: config.DetectorConfig{Backend: "presidio"}},
		{name: "missing recognizer file", cfg: config.DetectorConfig{
			Backend: "pattern",
			Pattern: config.PatternConfig{File: "/nonexistent/recognizers.yaml"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(context.Background(), tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}
