package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/veil/pkg/cli"
	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/evidence"
	"mercator-hq/veil/pkg/evidence/storage"
)

const sampleText = "mail jane.doe@example.org now"

// execute runs a fresh command tree and captures its output.
func execute(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "Veil "+Version) {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Go Version:") {
		t.Errorf("missing Go version line in %q", out)
	}
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	want := []string{"run", "detect", "redact", "validate", "evidence", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestDetectCommand(t *testing.T) {
	t.Run("csv from args", func(t *testing.T) {
		out, _, err := execute(t, "", "detect", "--output", "csv", sampleText)
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		if !strings.HasPrefix(out, "entity_type,start,end,score,text\n") {
			t.Errorf("missing csv header: %q", out)
		}
		if !strings.Contains(out, "EMAIL_ADDRESS,5,25,1.00,jane.doe@example.org") {
			t.Errorf("missing email row: %q", out)
		}
	})

	t.Run("highlight from stdin", func(t *testing.T) {
		out, _, err := execute(t, sampleText+"\n", "detect", "--highlight")
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		want := "mail «EMAIL_ADDRESS:jane.doe@example.org» now\n"
		if out != want {
			t.Errorf("output = %q, want %q", out, want)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		out, _, err := execute(t, "", "detect", "the weather is nice")
		if err != nil {
			t.Fatalf("detect: %v", err)
		}
		if out != "no entities detected\n" {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		if _, _, err := execute(t, "", "detect", "--output", "xml", sampleText); err == nil {
			t.Fatal("expected error for unknown output format")
		}
	})
}

func TestRedactCommand(t *testing.T) {
	out, errOut, err := execute(t, "", "redact", "--session", "s-1", "--show-mapping", sampleText)
	if err != nil {
		t.Fatalf("redact: %v", err)
	}

	if strings.Contains(out, "jane.doe@example.org") {
		t.Fatalf("sanitized output leaked the email: %q", out)
	}
	if !strings.HasPrefix(out, "mail [EMAIL_ADDRESS_") || !strings.HasSuffix(out, "] now\n") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(errOut, "redacted 1, kept 0, placeholders 1 (session s-1)") {
		t.Errorf("summary = %q", errOut)
	}
	if !strings.Contains(errOut, "\tjane.doe@example.org") {
		t.Errorf("--show-mapping should list the original value on stderr: %q", errOut)
	}
}

func TestRedactFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	content := "first jane.doe@example.org\nnothing here\nsecond bob@example.com\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	out, errOut, err := execute(t, "", "redact", "--file", path, "--progress")
	if err != nil {
		t.Fatalf("redact: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3: %q", len(lines), out)
	}
	if lines[1] != "nothing here" {
		t.Errorf("clean line changed: %q", lines[1])
	}
	if strings.Contains(out, "@example") {
		t.Errorf("output leaked an address: %q", out)
	}
	if !strings.Contains(errOut, "lines/s") || !strings.Contains(errOut, "redacted 2") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestRedactJSON(t *testing.T) {
	out, _, err := execute(t, "", "redact", "--output", "json", "--session", "s-json", sampleText)
	if err != nil {
		t.Fatalf("redact: %v", err)
	}
	for _, want := range []string{`"session_id": "s-json"`, `"redacted": 1`, `"placeholders": 1`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %s: %s", want, out)
		}
	}
}

func TestValidateCommand(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeConfig(t, "providers:\n  echo: {}\nevidence:\n  enabled: false\n")
		out, _, err := execute(t, "", "validate", "--config", path)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if !strings.Contains(out, "✓ Configuration valid") || !strings.Contains(out, "provider:  echo") {
			t.Errorf("output = %q", out)
		}
		if !strings.Contains(out, "evidence:  disabled") {
			t.Errorf("output = %q", out)
		}
	})

	t.Run("invalid exits 2", func(t *testing.T) {
		path := writeConfig(t, "pipeline:\n  provider: missing\n")
		_, _, err := execute(t, "", "validate", "--config", path)
		if err == nil {
			t.Fatal("expected validation error")
		}
		var cfgErr *cli.ConfigError
		if !errors.As(err, &cfgErr) {
			t.Fatalf("error type = %T, want *cli.ConfigError", err)
		}
		if cli.ExitCode(err) != cli.ExitConfigError {
			t.Errorf("ExitCode = %d", cli.ExitCode(err))
		}
		if !strings.Contains(err.Error(), "pipeline.provider") {
			t.Errorf("error should name the field: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute(t, "", "validate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
		if cli.ExitCode(err) != cli.ExitConfigError {
			t.Errorf("ExitCode = %d, err = %v", cli.ExitCode(err), err)
		}
	})
}

func TestRunDryRun(t *testing.T) {
	path := writeConfig(t, "providers:\n  echo: {}\n")
	out, _, err := execute(t, "", "run", "--config", path, "--dry-run", "--log-level", "warn")
	if err != nil {
		t.Fatalf("run --dry-run: %v", err)
	}
	if !strings.Contains(out, "✓ Configuration valid") {
		t.Errorf("output = %q", out)
	}

	_, _, err = execute(t, "", "run", "--config", path, "--dry-run", "--log-level", "loud")
	if cli.ExitCode(err) != cli.ExitConfigError {
		t.Errorf("bad log level: ExitCode = %d, err = %v", cli.ExitCode(err), err)
	}
}

// seedEvidence writes one success and one error record to a sqlite store and
// returns a config file pointing at it.
func seedEvidence(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "evidence.db")
	cfgPath := writeConfig(t, "evidence:\n  enabled: true\n  backend: sqlite\n  sqlite:\n    path: "+dbPath+"\n")

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	store, err := storage.New(cfg.Evidence)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}

	now := time.Now()
	ok := evidence.NewRecord("req-1", "session-a", now.Add(-time.Minute))
	ok.Provider, ok.Model = "echo", "echo"
	ok.EntityCounts = map[string]int{"EMAIL_ADDRESS": 1}
	ok.Redacted, ok.Placeholders = 1, 1

	failed := evidence.NewRecord("req-2", "session-b", now)
	failed.Provider = "echo"
	failed.Status = evidence.StatusError
	failed.ErrorStage, failed.ErrorType = "provider", "timeout"

	for _, r := range []*evidence.Record{ok, failed} {
		r.RecordedTime = now
		if err := store.Store(context.Background(), r); err != nil {
			t.Fatalf("store: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return cfgPath
}

func TestEvidenceQuery(t *testing.T) {
	cfgPath := seedEvidence(t)

	out, _, err := execute(t, "", "evidence", "query", "--config", cfgPath)
	if err != nil {
		t.Fatalf("evidence query: %v", err)
	}
	if !strings.Contains(out, "Matching records: 2 (showing 2)") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "error (provider: timeout)") || !strings.Contains(out, "EMAIL_ADDRESS=1") {
		t.Errorf("output = %q", out)
	}

	out, _, err = execute(t, "", "evidence", "query", "--config", cfgPath, "--session", "session-a", "--output", "json")
	if err != nil {
		t.Fatalf("evidence query --session: %v", err)
	}
	if !strings.Contains(out, `"total_records": 1`) || !strings.Contains(out, evidence.HashSession("session-a")) {
		t.Errorf("output = %q", out)
	}
	if strings.Contains(out, "session-a\"") {
		t.Errorf("raw session id must not appear: %q", out)
	}

	if _, _, err := execute(t, "", "evidence", "query", "--config", cfgPath, "--status", "maybe"); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestEvidenceExport(t *testing.T) {
	cfgPath := seedEvidence(t)

	out, _, err := execute(t, "", "evidence", "export", "--config", cfgPath, "--format", "csv")
	if err != nil {
		t.Fatalf("evidence export: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("export is not CSV: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "id" {
		t.Fatalf("rows = %v", rows)
	}
	if rows[1][1] != "req-1" || rows[2][1] != "req-2" {
		t.Errorf("records should be oldest first: %v", rows[1:])
	}

	file := filepath.Join(t.TempDir(), "audit.json")
	_, errOut, err := execute(t, "", "evidence", "export", "--config", cfgPath, "--status", "error", "--file", file)
	if err != nil {
		t.Fatalf("evidence export --file: %v", err)
	}
	if !strings.Contains(errOut, "Exported evidence to") {
		t.Errorf("stderr = %q", errOut)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	var records []evidence.Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("export file is not JSON: %v", err)
	}
	if len(records) != 1 || records[0].RequestID != "req-2" {
		t.Errorf("records = %+v", records)
	}

	if _, _, err := execute(t, "", "evidence", "export", "--config", cfgPath, "--format", "xml"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestEvidenceDisabled(t *testing.T) {
	path := writeConfig(t, "evidence:\n  enabled: false\n")
	_, _, err := execute(t, "", "evidence", "query", "--config", path)
	if cli.ExitCode(err) != cli.ExitConfigError {
		t.Errorf("ExitCode = %d, err = %v", cli.ExitCode(err), err)
	}
}
