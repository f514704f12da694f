package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, redact bool) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: "debug", Format: "json", RedactPII: redact, Writer: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return l, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestLogger_Redaction(t *testing.T) {
	l, buf := newTestLogger(t, true)

	l.Info("upstream said: patient 123-45-6789 unreachable",
		"api_key", "sk-live-abcdef",
		"email", "jane@example.com",
		"prompt", "my SSN is 123-45-6789",
		"prompt_tokens", 12,
		"error", errors.New("call 555-123-4567 failed"),
		"entities", 3,
	)

	line := decodeLine(t, buf)
	if strings.Contains(buf.String(), "123-45-6789") {
		t.Errorf("SSN leaked: %s", buf.String())
	}
	if line["api_key"] != "***" {
		t.Errorf("api_key = %v", line["api_key"])
	}
	if line["email"] != "***@***" {
		t.Errorf("email = %v", line["email"])
	}
	if line["prompt"] != "***" {
		t.Errorf("prompt = %v", line["prompt"])
	}
	if line["prompt_tokens"] != float64(12) {
		t.Errorf("numeric value under sensitive key should be kept, got %v", line["prompt_tokens"])
	}
	if line["error"] != "call ***-***-**** failed" {
		t.Errorf("error = %v", line["error"])
	}
	if line["entities"] != float64(3) {
		t.Errorf("entities = %v", line["entities"])
	}
}

func TestLogger_NoRedaction(t *testing.T) {
	l, buf := newTestLogger(t, false)
	l.Info("debug", "email", "jane@example.com")

	if decodeLine(t, buf)["email"] != "jane@example.com" {
		t.Errorf("redaction should be off: %s", buf.String())
	}
}

func TestLogger_ContextFields(t *testing.T) {
	l, buf := newTestLogger(t, true)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithSession(ctx, "sess-1")
	ctx = WithProvider(ctx, "echo")
	ctx = WithModel(ctx, "echo-1")
	l.InfoContext(ctx, "chat completed")

	line := decodeLine(t, buf)
	for key, want := range map[string]string{
		"request_id": "req-1",
		"session":    "sess-1",
		"provider":   "echo",
		"model":      "echo-1",
	} {
		if line[key] != want {
			t.Errorf("%s = %v, want %s", key, line[key], want)
		}
	}
}

func TestLogger_WithAndGroups(t *testing.T) {
	l, buf := newTestLogger(t, true)

	l.With("component", "test", "token_secret", "abc").Slog().
		WithGroup("req").Info("x", "client_ip", "10.1.2.3")

	line := decodeLine(t, buf)
	if line["component"] != "test" || line["token_secret"] != "***" {
		t.Errorf("with attrs = %v", line)
	}
	group, ok := line["req"].(map[string]any)
	if !ok || group["client_ip"] != "*.*.*.*" {
		t.Errorf("group = %v", line["req"])
	}
}

func TestLogger_SetLevel(t *testing.T) {
	l, buf := newTestLogger(t, false)
	if err := l.SetLevel("error"); err != nil {
		t.Fatal(err)
	}
	l.Warn("dropped")
	if buf.Len() != 0 {
		t.Errorf("warn should be filtered at error level: %s", buf.String())
	}
	if err := l.SetLevel("nope"); err == nil {
		t.Error("expected error for bad level")
	}
}
