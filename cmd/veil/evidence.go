package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/veil/pkg/cli"
	"mercator-hq/veil/pkg/evidence"
	"mercator-hq/veil/pkg/evidence/export"
	"mercator-hq/veil/pkg/evidence/query"
	"mercator-hq/veil/pkg/evidence/storage"
)

type evidenceOptions struct {
	since     time.Duration
	status    string
	provider  string
	model     string
	sessionID string
	limit     int
	offset    int
	output    string
}

func newEvidenceCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Inspect the evidence audit trail",
		Long: `Query the evidence store written by veil run.

Evidence records hold counts, labels and timings only. Prompts, replies and
placeholder mappings are never stored, and session ids are kept as SHA-256
hashes; --session hashes its argument before querying.`,
	}
	cmd.AddCommand(newEvidenceQueryCmd(root), newEvidenceExportCmd(root))
	return cmd
}

func newEvidenceQueryCmd(root *rootOptions) *cobra.Command {
	opts := &evidenceOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query evidence records",
		Long: `Query evidence records with filters, newest first.

Examples:
  # Failures in the last day
  veil evidence query --status error --since 24h

  # Everything recorded for one session
  veil evidence query --session 2f1c... --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return queryEvidence(cmd, root, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.since, "since", 0, "only records newer than this (e.g. 1h, 24h)")
	cmd.Flags().StringVar(&opts.status, "status", "", "filter by status (success, error)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "filter by provider")
	cmd.Flags().StringVar(&opts.model, "model", "", "filter by model")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "filter by session id")
	cmd.Flags().IntVar(&opts.limit, "limit", 50, "max results")
	cmd.Flags().IntVar(&opts.offset, "offset", 0, "pagination offset")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json")
	return cmd
}

// openEvidence loads the configuration and opens the evidence store.
func openEvidence(root *rootOptions) (evidence.Storage, error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Evidence.Enabled {
		return nil, cli.NewConfigError("evidence.enabled", "evidence recording is disabled")
	}
	store, err := storage.New(cfg.Evidence)
	if err != nil {
		return nil, cli.NewCommandError("evidence", err)
	}
	return store, nil
}

// filter builds the query shared by evidence query and evidence export.
func (o *evidenceOptions) filter() evidence.Query {
	q := evidence.Query{
		Provider:    o.provider,
		Model:       o.model,
		Status:      o.status,
		SessionHash: evidence.HashSession(o.sessionID),
	}
	if o.since > 0 {
		start := time.Now().Add(-o.since)
		q.StartTime = &start
	}
	return q
}

func queryEvidence(cmd *cobra.Command, root *rootOptions, opts *evidenceOptions) error {
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("csv output is not supported by evidence query, use evidence export")
	}

	filter := opts.filter()
	q := filter
	q.Limit = opts.limit
	q.Offset = opts.offset
	query.ApplyDefaults(&q)
	if err := query.Validate(&q); err != nil {
		return err
	}

	store, err := openEvidence(root)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	records, err := store.Query(ctx, &q)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("query failed: %w", err))
	}

	out := cmd.OutOrStdout()
	if format == cli.FormatJSON {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(out, map[string]any{
			"total_records": len(records),
			"records":       records,
		})
	}

	total, err := store.Count(ctx, &filter)
	if err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("count failed: %w", err))
	}
	return writeEvidenceText(out, records, total)
}

type exportOptions struct {
	evidenceOptions
	format string
	file   string
	pretty bool
}

func newEvidenceExportCmd(root *rootOptions) *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export evidence records as JSON or CSV",
		Long: `Export every matching evidence record, oldest first.

Records are read from the store page by page and streamed to the output, so
large audit trails do not have to fit in memory.

Examples:
  veil evidence export --format csv --file audit.csv
  veil evidence export --since 168h --status error --pretty`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return exportEvidence(cmd, root, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.since, "since", 0, "only records newer than this (e.g. 1h, 24h)")
	cmd.Flags().StringVar(&opts.status, "status", "", "filter by status (success, error)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "filter by provider")
	cmd.Flags().StringVar(&opts.model, "model", "", "filter by model")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "filter by session id")
	cmd.Flags().StringVar(&opts.format, "format", "json", "export format: json, csv")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	return cmd
}

func exportEvidence(cmd *cobra.Command, root *rootOptions, opts *exportOptions) error {
	exporter, err := export.New(opts.format, opts.pretty)
	if err != nil {
		return err
	}
	filter := opts.filter()
	if err := query.Validate(&filter); err != nil {
		return err
	}

	store, err := openEvidence(root)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if opts.file != "" {
		f, err := os.Create(opts.file)
		if err != nil {
			return cli.NewCommandError("evidence", err)
		}
		defer f.Close()
		out = f
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	records, errs := export.Stream(ctx, store, filter, 0)
	if err := exporter.ExportStream(ctx, records, out); err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("export failed: %w", err))
	}
	if err := <-errs; err != nil {
		return cli.NewCommandError("evidence", fmt.Errorf("export failed: %w", err))
	}
	if opts.file != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported evidence to %s\n", opts.file)
	}
	return nil
}

func writeEvidenceText(out io.Writer, records []*evidence.Record, total int64) error {
	fmt.Fprintf(out, "Matching records: %d (showing %d)\n", total, len(records))
	if len(records) == 0 {
		return nil
	}

	for _, r := range records {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Record ID: %s\n", r.ID)
		fmt.Fprintf(out, "Time:      %s\n", r.RequestTime.Format(time.RFC3339))
		if r.SessionHash != "" {
			fmt.Fprintf(out, "Session:   %s\n", r.SessionHash[:min(12, len(r.SessionHash))])
		}
		fmt.Fprintf(out, "Provider:  %s %s\n", r.Provider, r.Model)
		if r.Status == evidence.StatusError {
			fmt.Fprintf(out, "Status:    error (%s: %s)\n", r.ErrorStage, r.ErrorType)
		} else {
			fmt.Fprintf(out, "Status:    %s\n", r.Status)
		}
		fmt.Fprintf(out, "Entities:  %s\n", formatEntityCounts(r.EntityCounts))
		fmt.Fprintf(out, "Tokens:    redacted %d, kept %d, placeholders %d\n", r.Redacted, r.Kept, r.Placeholders)
		fmt.Fprintf(out, "Latency:   %s (detect %s, provider %s)\n", r.TotalLatency, r.DetectLatency, r.ProviderLatency)
	}
	return nil
}

func formatEntityCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for _, label := range slices.Sorted(maps.Keys(counts)) {
		parts = append(parts, fmt.Sprintf("%s=%d", label, counts[label]))
	}
	return strings.Join(parts, ", ")
}
