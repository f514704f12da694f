package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"mercator-hq/veil/pkg/cli"
	"mercator-hq/veil/pkg/config"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "veil",
		Short: "Veil - PII/PHI tokenization gateway for LLM prompts",
		Long: `Veil sits between your application and an LLM provider. Every prompt is
scanned for personal and health information, sensitive values are replaced by
session-scoped placeholders such as [PERSON_3f9a0c12], and the provider's reply
is re-identified before it is returned.

Configuration is read from an optional YAML file and VEIL_* environment
variables; a .env file in the working directory is loaded first.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file path (defaults and VEIL_* environment only when empty)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newRunCmd(opts),
		newDetectCmd(opts),
		newRedactCmd(opts),
		newValidateCmd(opts),
		newEvidenceCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.ExitCode(err)
	}
	return cli.ExitOK
}

// loadConfig reads .env, the configuration file and VEIL_* overrides.
// Failures come back as *cli.ConfigError.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, cli.NewConfigError(".env", err.Error())
	}
	cfg, err := config.LoadConfigWithEnvOverrides(o.configPath)
	if err != nil {
		return nil, cli.NewConfigError(o.configPath, err.Error())
	}
	if o.verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// readInput returns the joined args, or stdin when there are none.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}
