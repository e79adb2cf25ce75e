package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/inkwash-dev/inkwash/internal/backend"
	"github.com/inkwash-dev/inkwash/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
	cfg        *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "inkwash",
		Short: "Comic page text removal and translation client",
		Long: `Inkwash drives a translation server that removes and re-typesets text on comic pages.

Pages can be masked by hand in a headless editor and sent through the
erase-then-translate pipeline one at a time, or whole chapters can be
submitted to the automatic pipeline and followed until they finish.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, found, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			opts.cfg = cfg
			setupLogging(cfg.Logging, opts.verbose)
			slog.Debug("Configuration loaded", "path", opts.configPath, "found", found, "backend", cfg.Backend.BaseURL)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default ./"+config.DefaultFileName+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	// Add subcommands
	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newMaskCmd(opts))
	cmd.AddCommand(newChapterCmd(opts))
	cmd.AddCommand(newReportCmd(opts))

	return cmd
}

func setupLogging(cfg config.Logging, verbose bool) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

func (o *rootOptions) client() *backend.Client {
	return backend.NewClient(o.cfg.Backend.BaseURL, o.cfg.Backend.APIKey, o.cfg.BackendTimeout())
}
