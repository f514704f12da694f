package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/veil/pkg/cli"
	"mercator-hq/veil/pkg/config"
	"mercator-hq/veil/pkg/server"
	"mercator-hq/veil/pkg/telemetry/logging"
)

type runOptions struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the tokenization gateway",
		Long: `Start the Veil gateway with the specified configuration.

The gateway serves POST /v1/chat, POST /v1/detect and DELETE /v1/sessions/{id}
plus health, readiness and metrics endpoints. SIGINT or SIGTERM drains
in-flight requests and flushes the evidence recorder before exiting.

Examples:
  # Start with defaults and VEIL_* environment overrides
  veil run

  # Start with a config file and reload the log level when it changes
  veil run --config /etc/veil/config.yaml --watch

  # Override listen address
  veil run --listen 0.0.0.0:8080

  # Validate config without starting the gateway
  veil run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.listenAddress, "listen", "l", "", "override listen address")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "validate config without starting the gateway")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "reload the config file on change (log level only)")
	return cmd
}

func runGateway(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	if opts.listenAddress != "" {
		cfg.Server.ListenAddress = opts.listenAddress
	}
	if opts.logLevel != "" {
		cfg.Telemetry.Logging.Level = opts.logLevel
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()

	if opts.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	config.SetConfig(cfg)
	if opts.watch && root.configPath != "" {
		go watchConfig(ctx, root.configPath, logger)
	}

	srv, err := server.New(ctx, cfg, Version)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	return nil
}

// watchConfig applies reloadable settings until ctx is cancelled.
func watchConfig(ctx context.Context, path string, logger *logging.Logger) {
	err := config.Watch(ctx, path, func(cfg *config.Config) {
		level := cfg.Telemetry.Logging.Level
		if err := logger.SetLevel(level); err != nil {
			slog.Warn("ignoring reloaded log level", "level", level, "error", err)
			return
		}
		slog.Info("configuration reloaded", "log_level", level)
	})
	if err != nil {
		slog.Warn("config watcher stopped", "error", err)
	}
}
