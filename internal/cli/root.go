// Package cli defines the command-line interface for shopctl.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shopstack/shopctl/internal/logging"
)

const (
	// defaultWorkspace is the default provisioning root directory.
	defaultWorkspace = "shop-deploy"
)

// Options stores global CLI options shared between commands.
type Options struct {
	Workspace string
	LogLevel  logging.Level
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	rootOpts := &Options{
		Workspace: defaultWorkspace,
		LogLevel:  logging.LevelInfo,
	}

	rootCmd := newRootCommand(rootOpts, logger)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

// newRootCommand constructs the root cobra.Command with global flags and subcommands.
func newRootCommand(opts *Options, logger *slog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shopctl",
		Short: "shopctl provisions and deploys a Saleor commerce stack",
		Long: "shopctl materializes a complete multi-service commerce deployment from a domain " +
			"name and image owner: it derives secrets, renders the compose manifest, reverse-proxy " +
			"config and env files, and brings the stack up via docker compose. Every provisioning " +
			"step is idempotent, so re-running after a failure is always safe.",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := logging.ParseLevel(cmd.Flag("log-level").Value.String())
			opts.LogLevel = level
			logger = logging.NewLogger(os.Stderr, level)
			cmd.SetContext(context.WithValue(cmd.Context(), loggerKey{}, logger))
			logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Workspace, "workspace", "w", defaultWorkspace, "Provisioning root directory")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newDeployCommand(opts),
		newRenderCommand(opts),
		newDownCommand(opts),
	)

	return cmd
}

// loggerKey is a private context key used to store a logger in command contexts.
type loggerKey struct{}

// LoggerFromContext extracts a logger from the context or falls back to a default logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return logging.NewLogger(os.Stderr, logging.LevelInfo)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.NewLogger(os.Stderr, logging.LevelInfo)
}
