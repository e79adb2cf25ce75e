package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/inkwash-dev/inkwash/internal/batch"
	"github.com/inkwash-dev/inkwash/internal/editor"
	"github.com/inkwash-dev/inkwash/internal/handlers"
	"github.com/inkwash-dev/inkwash/internal/images"
	"github.com/inkwash-dev/inkwash/internal/joblog"
	"github.com/inkwash-dev/inkwash/internal/storage"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the editor and batch API server",
		Long: `Starts the Inkwash HTTP API.

The API exposes the headless page editor (open, strokes, undo/redo, mask
export, erase and translate), the page selection and batch translation
jobs. Finished batch jobs are appended to the configured job log.`,
		Example: `  # Start server on the configured bind address (default :8888)
  inkwash serve

  # Start server on custom port
  inkwash serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			client := opts.client()
			jobs := storage.New()

			ed := editor.New(images.NewLoader(), client, client, editor.Options{
				Diameter: cfg.Editor.BrushDiameter,
				Color:    cfg.BrushColor(),
			})

			var handler *handlers.Handler
			poller := batch.NewPoller(client, client, batch.Config{
				Interval:    cfg.PollInterval(),
				MaxDuration: cfg.MaxDuration(),
				Recorder:    jobs,
				OnEvent: func(ev batch.Event) {
					handler.OnBatchEvent(ev)
					if cfg.JobLog.Path == "" {
						return
					}
					if err := joblog.Append(cfg.JobLog.Path, ev.Job); err != nil {
						slog.Error("Failed to append job log", "path", cfg.JobLog.Path, "err", err)
					}
				},
			})
			handler = handlers.New(handlers.Options{
				Editor:         ed,
				Chapters:       client,
				Poller:         poller,
				Jobs:           jobs,
				TargetLanguage: cfg.Batch.TargetLanguage,
			})

			addr := cfg.Server.Bind
			if cmd.Flags().Changed("port") {
				addr = ":" + port
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Inkwash API available", "addr", addr, "backend", cfg.Backend.BaseURL)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				poller.Shutdown()
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				poller.Shutdown()
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides server.bind)")

	return cmd
}
