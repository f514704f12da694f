package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"mercator-hq/veil/pkg/evidence"
)

// flushEvery is how many streamed rows are buffered between flushes.
const flushEvery = 100

// Header is the CSV column order.
var Header = []string{
	"id", "request_id", "session_hash", "user_id",
	"request_time", "recorded_time",
	"provider", "model",
	"status", "error_stage", "error_type",
	"entity_counts", "redacted", "kept", "placeholders", "session_entries",
	"prompt_tokens", "completion_tokens", "total_tokens",
	"detect_latency_ms", "provider_latency_ms", "total_latency_ms",
}

// CSVExporter writes one row per record. Entity counts are a JSON object in
// a single column.
type CSVExporter struct {
	// IncludeHeader writes Header as the first row.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes records as CSV.
func (e *CSVExporter) Export(ctx context.Context, records []*evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}
	for i, record := range records {
		if err := writer.Write(recordToRow(record)); err != nil {
			return evidence.NewExportError("csv", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return evidence.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from ch as CSV, flushing periodically.
func (e *CSVExporter) ExportStream(ctx context.Context, ch <-chan *evidence.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header); err != nil {
			return evidence.NewExportError("csv", 0, err)
		}
	}

	count := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-ch:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
				return nil
			}

			if err := writer.Write(recordToRow(record)); err != nil {
				return evidence.NewExportError("csv", count, err)
			}
			count++

			if count%flushEvery == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return evidence.NewExportError("csv", count, err)
				}
			}
		}
	}
}

func recordToRow(r *evidence.Record) []string {
	formatTime := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.RFC3339)
	}
	itoa := strconv.Itoa
	ms := func(d time.Duration) string { return strconv.FormatInt(d.Milliseconds(), 10) }

	counts := "{}"
	if len(r.EntityCounts) > 0 {
		// map[string]int always marshals.
		data, _ := json.Marshal(r.EntityCounts)
		counts = string(data)
	}

	return []string{
		r.ID,
		r.RequestID,
		r.SessionHash,
		r.UserID,
		formatTime(r.RequestTime),
		formatTime(r.RecordedTime),
		r.Provider,
		r.Model,
		r.Status,
		r.ErrorStage,
		r.ErrorType,
		counts,
		itoa(r.Redacted),
		itoa(r.Kept),
		itoa(r.Placeholders),
		itoa(r.SessionEntries),
		itoa(r.PromptTokens),
		itoa(r.CompletionTokens),
		itoa(r.TotalTokens),
		ms(r.DetectLatency),
		ms(r.ProviderLatency),
		ms(r.TotalLatency),
	}
}
