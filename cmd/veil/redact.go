package main

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mercator-hq/veil/pkg/cli"
	"mercator-hq/veil/pkg/detectorfactory"
	"mercator-hq/veil/pkg/server"
	"mercator-hq/veil/pkg/vault"
)

type redactOptions struct {
	file        string
	sessionID   string
	output      string
	showMapping bool
	progress    bool
}

// redactSummary is the --output json document.
type redactSummary struct {
	SessionID     string `json:"session_id"`
	SanitizedText string `json:"sanitized_text"`
	Redacted      int    `json:"redacted"`
	Kept          int    `json:"kept"`
	Placeholders  int    `json:"placeholders"`
}

func newRedactCmd(root *rootOptions) *cobra.Command {
	opts := &redactOptions{}

	cmd := &cobra.Command{
		Use:   "redact [text...]",
		Short: "Tokenize text locally and print the sanitized result",
		Long: `Detect and tokenize text with an in-process vault, exactly as the gateway
does before calling a provider, and print the de-identified text.

Input comes from --file (processed line by line in one session), the
arguments, or stdin. Counts go to stderr so stdout holds only the sanitized
text. The mapping lives in memory and is discarded on exit; --show-mapping
prints it to stderr.

Examples:
  veil redact "Patient John Smith, SSN 123-45-6789"
  veil redact --file notes.txt --progress > notes.redacted.txt
  veil redact --output json < prompt.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRedact(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "redact a file line by line")
	cmd.Flags().StringVar(&opts.sessionID, "session", "", "session id (random when empty)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json")
	cmd.Flags().BoolVar(&opts.showMapping, "show-mapping", false, "print placeholder mappings to stderr")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "show a progress bar on stderr (with --file)")
	return cmd
}

func runRedact(cmd *cobra.Command, root *rootOptions, opts *redactOptions, args []string) error {
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}
	if format == cli.FormatCSV {
		return fmt.Errorf("csv output is not supported by redact")
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	lines, err := redactInput(cmd, opts.file, args)
	if err != nil {
		return cli.NewCommandError("redact", err)
	}

	ctx := cmd.Context()
	det, err := detectorfactory.New(ctx, cfg.Detector)
	if err != nil {
		return cli.NewCommandError("redact", err)
	}

	store := vault.New(vault.Config{TTL: cfg.Vault.TTL, Shards: cfg.Vault.Shards})
	tokenizer, err := server.NewTokenizer(cfg, store)
	if err != nil {
		return cli.NewCommandError("redact", err)
	}

	sessionID := opts.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	var progress cli.ProgressReporter
	if opts.progress && opts.file != "" {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "lines")
		progress.Start(int64(len(lines)))
	}

	summary := redactSummary{SessionID: sessionID}
	sanitized := make([]string, 0, len(lines))
	for i, line := range lines {
		detectCtx, cancel := context.WithTimeout(ctx, cfg.Detector.Timeout)
		spans, err := det.Detect(detectCtx, line, det.Entities)
		cancel()
		if err != nil {
			if progress != nil {
				progress.Error(err)
			}
			return cli.NewCommandError("redact", fmt.Errorf("line %d: %w", i+1, err))
		}

		res, err := tokenizer.Tokenize(line, sessionID, spans)
		if err != nil {
			return cli.NewCommandError("redact", fmt.Errorf("line %d: %w", i+1, err))
		}
		sanitized = append(sanitized, res.SanitizedText)
		summary.Redacted += len(res.Accepted)
		summary.Kept += len(res.Kept)

		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	mapping, _ := store.Get(sessionID)
	summary.Placeholders = len(mapping)
	summary.SanitizedText = strings.Join(sanitized, "\n")

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(cli.FormatJSON).FormatTo(out, summary); err != nil {
			return err
		}
	} else {
		if _, err := fmt.Fprintln(out, summary.SanitizedText); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "redacted %d, kept %d, placeholders %d (session %s)\n",
			summary.Redacted, summary.Kept, summary.Placeholders, sessionID)
	}

	if opts.showMapping {
		for _, ph := range slices.Sorted(maps.Keys(mapping)) {
			fmt.Fprintf(errOut, "%s\t%s\n", ph, mapping[ph])
		}
	}
	return nil
}

// redactInput splits a file into lines, or returns the argument/stdin text
// as a single unit.
func redactInput(cmd *cobra.Command, file string, args []string) ([]string, error) {
	if file == "" {
		text, err := readInput(cmd, args)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	content := strings.TrimRight(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}
