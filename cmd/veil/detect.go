package main

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"mercator-hq/veil/pkg/cli"
	"mercator-hq/veil/pkg/detector"
	"mercator-hq/veil/pkg/detectorfactory"
	"mercator-hq/veil/pkg/tokenize"
)

type detectOptions struct {
	output    string
	highlight bool
}

func newDetectCmd(root *rootOptions) *cobra.Command {
	opts := &detectOptions{}

	cmd := &cobra.Command{
		Use:   "detect [text...]",
		Short: "Detect sensitive entities without tokenizing",
		Long: `Run the configured detector over text and print the spans it finds.

Text comes from the arguments or, when none are given, from stdin. Nothing is
stored and no provider is called.

Examples:
  veil detect "My name is John Smith, call 555-123-4567"
  cat note.txt | veil detect --output csv
  veil detect --highlight < note.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, root, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json, csv")
	cmd.Flags().BoolVar(&opts.highlight, "highlight", false, "print the input with detected spans marked")
	return cmd
}

func runDetect(cmd *cobra.Command, root *rootOptions, opts *detectOptions, args []string) error {
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		return err
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	text, err := readInput(cmd, args)
	if err != nil {
		return cli.NewCommandError("detect", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Detector.Timeout)
	defer cancel()

	det, err := detectorfactory.New(ctx, cfg.Detector)
	if err != nil {
		return cli.NewCommandError("detect", err)
	}

	spans, err := det.Detect(ctx, text, det.Entities)
	if err != nil {
		return cli.NewCommandError("detect", err)
	}

	out := cmd.OutOrStdout()
	if opts.highlight {
		marked := tokenize.ResolveOverlaps(spans)
		slices.SortFunc(marked, func(a, b detector.Span) int { return cmp.Compare(a.Start, b.Start) })
		_, err := fmt.Fprintln(out, cli.Highlight(text, marked, cli.ColorEnabled(out)))
		return err
	}
	return cli.NewFormatter(format).FormatTo(out, spans)
}
