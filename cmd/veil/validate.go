package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/veil/pkg/cli"
	"mercator-hq/veil/pkg/detectorfactory"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Long: `Load the configuration exactly as veil run would, including .env and VEIL_*
overrides, and report every invalid field. The detector is built too, so a
broken recognizer file is reported here rather than at startup.

Exit status is 2 when the configuration is invalid.

Examples:
  veil validate --config config.yaml
  VEIL_DETECTOR_BACKEND=presidio veil validate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			if _, err := detectorfactory.New(cmd.Context(), cfg.Detector); err != nil {
				return cli.NewConfigError("detector", err.Error())
			}

			provider := cfg.Pipeline.Provider
			if provider == "" {
				provider = "(none)"
			}
			evidenceBackend := "disabled"
			if cfg.Evidence.Enabled {
				evidenceBackend = cfg.Evidence.Backend
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "✓ Configuration valid")
			fmt.Fprintf(out, "  listen:    %s\n", cfg.Server.ListenAddress)
			fmt.Fprintf(out, "  detector:  %s\n", cfg.Detector.Backend)
			fmt.Fprintf(out, "  provider:  %s\n", provider)
			fmt.Fprintf(out, "  vault ttl: %s\n", cfg.Vault.TTL)
			fmt.Fprintf(out, "  evidence:  %s\n", evidenceBackend)
			return nil
		},
	}
}
