package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lehigh-university-libraries/captioner/internal/config"
	"github.com/lehigh-university-libraries/captioner/internal/handlers"
	"github.com/lehigh-university-libraries/captioner/internal/metrics"
	"github.com/lehigh-university-libraries/captioner/internal/providers"
	"github.com/lehigh-university-libraries/captioner/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		port     string
		provider string
		model    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the captioning HTTP API",
		Long: `Starts the Captioner JSON API on the specified port.

Batches are submitted with POST /api/batches (multipart "files" or a JSON
list of image URLs), inspected with GET /api/batches/{id}, and collected as
a zip with GET /api/batches/{id}/archive. The caption model is created on
the first batch and shared by every batch after it.`,
		Example: `  # Start server on default port 8888
  captioner serve

  # Start server on custom port with OpenAI
  captioner serve --port 3000 --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if port == "" {
				port = cfg.Server.Port
			}
			if provider == "" {
				provider = cfg.Provider
			}

			handle := providers.NewHandle(func(ctx context.Context) (providers.Provider, error) {
				return providers.New(ctx, cfg, provider, model)
			})
			defer func() {
				if err := handle.Close(); err != nil {
					slog.Error("Failed to close caption model", "err", err)
				}
			}()

			handler := handlers.New(storage.New(cfg.Server.MaxRuns, cfg.Server.RunTTL), handle, provider, model)

			// Set up routes
			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.RealIP)
			r.Use(middleware.Logger)
			r.Use(middleware.Recoverer)
			r.Use(metrics.Middleware)

			r.Route("/api", handler.Routes)
			r.Handle("/metrics", promhttp.Handler())
			r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + port
			server := &http.Server{
				Addr:    addr,
				Handler: r,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Captioner API available", "addr", addr, "url", "http://localhost"+addr, "provider", provider)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from SERVER_PORT)")
	cmd.Flags().StringVar(&provider, "provider", "", "Caption provider (default from CAPTION_PROVIDER)")
	cmd.Flags().StringVar(&model, "model", "", "Model name (default from the provider's environment variable)")

	return cmd
}
