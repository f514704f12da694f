package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/veil/pkg/evidence"
)

// DefaultPageSize is how many records Stream reads per storage query.
const DefaultPageSize = 500

// Exporter writes evidence records in one file format.
type Exporter interface {
	// Export writes records to w.
	Export(ctx context.Context, records []*evidence.Record, w io.Writer) error

	// ExportStream writes records from ch until it is closed.
	ExportStream(ctx context.Context, ch <-chan *evidence.Record, w io.Writer) error
}

// New returns the exporter for format ("json" or "csv").
func New(format string, pretty bool) (Exporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(true), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q (want json or csv)", format)
	}
}

// Stream pages through store with q and sends every matching record on the
// returned channel, oldest first. The record channel is closed when the
// results are exhausted; the error channel receives at most one error.
func Stream(ctx context.Context, store evidence.Storage, q evidence.Query, pageSize int) (<-chan *evidence.Record, <-chan error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	records := make(chan *evidence.Record, pageSize)
	errs := make(chan error, 1)

	go func() {
		defer close(records)
		defer close(errs)

		page := q
		page.SortOrder = "asc"
		page.Limit = pageSize
		page.Offset = 0
		for {
			batch, err := store.Query(ctx, &page)
			if err != nil {
				errs <- err
				return
			}
			for _, r := range batch {
				select {
				case records <- r:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
			if len(batch) < pageSize {
				return
			}
			page.Offset += pageSize
		}
	}()

	return records, errs
}
