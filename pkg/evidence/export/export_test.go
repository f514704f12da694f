package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"mercator-hq/veil/pkg/evidence"
	"mercator-hq/veil/pkg/evidence/storage"
)

func sampleRecords(n int) []*evidence.Record {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]*evidence.Record, n)
	for i := range records {
		r := evidence.NewRecord("req", "session", base.Add(time.Duration(i)*time.Minute))
		r.Provider = "echo"
		r.Model = "echo-1"
		r.EntityCounts = map[string]int{"PERSON": 1, "US_SSN": i}
		r.Redacted = 1 + i
		r.TotalLatency = 1500 * time.Millisecond
		records[i] = r
	}
	return records
}

func TestNew(t *testing.T) {
	if _, err := New("json", true); err != nil {
		t.Errorf("New(json) error = %v", err)
	}
	if _, err := New("csv", false); err != nil {
		t.Errorf("New(csv) error = %v", err)
	}
	if _, err := New("xml", false); err == nil {
		t.Error("New(xml) should fail")
	}
}

func TestJSONExporter_Export(t *testing.T) {
	ctx := context.Background()

	var buf bytes.Buffer
	if err := NewJSONExporter(false).Export(ctx, nil, &buf); err != nil {
		t.Fatalf("Export(nil) error = %v", err)
	}
	if buf.String() != "[]" {
		t.Errorf("empty export = %q, want []", buf.String())
	}

	records := sampleRecords(2)
	buf.Reset()
	if err := NewJSONExporter(true).Export(ctx, records, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	var decoded []evidence.Record
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(decoded) != 2 || decoded[1].Redacted != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded[0].SessionHash != evidence.HashSession("session") {
		t.Errorf("session hash = %q", decoded[0].SessionHash)
	}
}

func TestJSONExporter_ExportStream(t *testing.T) {
	for _, pretty := range []bool{false, true} {
		ch := make(chan *evidence.Record, 3)
		for _, r := range sampleRecords(3) {
			ch <- r
		}
		close(ch)

		var buf bytes.Buffer
		if err := NewJSONExporter(pretty).ExportStream(context.Background(), ch, &buf); err != nil {
			t.Fatalf("ExportStream(pretty=%v) error = %v", pretty, err)
		}
		var decoded []evidence.Record
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("stream output (pretty=%v) is not valid JSON: %v\n%s", pretty, err, buf.String())
		}
		if len(decoded) != 3 {
			t.Errorf("decoded %d records, want 3", len(decoded))
		}
	}
}

func TestCSVExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVExporter(true).Export(context.Background(), sampleRecords(2), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(Header, ",") {
		t.Errorf("header = %v", rows[0])
	}

	col := func(name string) int {
		for i, h := range Header {
			if h == name {
				return i
			}
		}
		t.Fatalf("no column %s", name)
		return -1
	}
	row := rows[2]
	if row[col("entity_counts")] != `{"PERSON":1,"US_SSN":1}` {
		t.Errorf("entity_counts = %q", row[col("entity_counts")])
	}
	if row[col("redacted")] != "2" {
		t.Errorf("redacted = %q", row[col("redacted")])
	}
	if row[col("total_latency_ms")] != "1500" {
		t.Errorf("total_latency_ms = %q", row[col("total_latency_ms")])
	}
	if row[col("request_time")] != "2026-03-01T12:01:00Z" {
		t.Errorf("request_time = %q", row[col("request_time")])
	}
	if row[col("recorded_time")] != "" {
		t.Errorf("zero recorded_time should be empty, got %q", row[col("recorded_time")])
	}
}

func TestCSVExporter_ExportStreamWithoutHeader(t *testing.T) {
	ch := make(chan *evidence.Record, 250)
	for _, r := range sampleRecords(250) {
		ch <- r
	}
	close(ch)

	var buf bytes.Buffer
	if err := NewCSVExporter(false).ExportStream(context.Background(), ch, &buf); err != nil {
		t.Fatalf("ExportStream() error = %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 250 {
		t.Errorf("got %d rows, want 250", len(rows))
	}
}

func TestExportStream_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan *evidence.Record)
	var buf bytes.Buffer
	if err := NewJSONExporter(false).ExportStream(ctx, ch, &buf); !errors.Is(err, context.Canceled) {
		t.Errorf("JSON ExportStream error = %v, want context.Canceled", err)
	}
	if err := NewCSVExporter(false).ExportStream(ctx, ch, &buf); !errors.Is(err, context.Canceled) {
		t.Errorf("CSV ExportStream error = %v, want context.Canceled", err)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestExport_WriteFailure(t *testing.T) {
	err := NewJSONExporter(false).Export(context.Background(), sampleRecords(1), failingWriter{})
	var exportErr *evidence.ExportError
	if !errors.As(err, &exportErr) || exportErr.Format != "json" {
		t.Errorf("error = %v, want *evidence.ExportError for json", err)
	}

	err = NewCSVExporter(true).Export(context.Background(), sampleRecords(1), failingWriter{})
	if !errors.As(err, &exportErr) || exportErr.Format != "csv" {
		t.Errorf("error = %v, want *evidence.ExportError for csv", err)
	}
}

func TestStream(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStorage(0)
	defer store.Close()

	records := sampleRecords(7)
	records[3].Status = evidence.StatusError
	for _, r := range records {
		if err := store.Store(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	ch, errs := Stream(ctx, store, evidence.Query{}, 3)
	var got []*evidence.Record
	for r := range ch {
		got = append(got, r)
	}
	if err := <-errs; err != nil {
		t.Fatalf("Stream error = %v", err)
	}
	if len(got) != 7 {
		t.Fatalf("streamed %d records, want 7", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].RequestTime.Before(got[i-1].RequestTime) {
			t.Fatal("records are not oldest first")
		}
	}

	ch, errs = Stream(ctx, store, evidence.Query{Status: evidence.StatusError}, 0)
	got = got[:0]
	for r := range ch {
		got = append(got, r)
	}
	if err := <-errs; err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != records[3].ID {
		t.Errorf("filtered stream = %d records", len(got))
	}
}
