package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/sakthis4/Alt-Text/internal/annotation"
	"github.com/sakthis4/Alt-Text/internal/config"
	"github.com/sakthis4/Alt-Text/internal/fetch"
	"github.com/sakthis4/Alt-Text/internal/handlers"
	"github.com/sakthis4/Alt-Text/internal/pipeline"
	"github.com/sakthis4/Alt-Text/internal/render"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var port string
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the asset extraction web service",
		Long: `Starts the Alt-Text web service on the specified port.

The service accepts a PDF or DOCX document, one or more images, or an
image URL, extracts the visual assets, and captions each one with
Gemini. A GEMINI_API_KEY must be set in the environment.`,
		Example: `  # Start server on default port 8888
  alt-text serve

  # Start server on custom port with a config file
  alt-text serve --port 3000 --config alt-text.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}

			// A missing API key is a fatal startup condition
			apiKey := os.Getenv("GEMINI_API_KEY")
			if apiKey == "" {
				return fmt.Errorf("GEMINI_API_KEY environment variable not set")
			}

			oracle, err := annotation.NewClient(cmd.Context(), apiKey, cfg.Model)
			if err != nil {
				return err
			}
			defer oracle.Close()

			renderer := &render.FitzRenderer{DPI: float64(cfg.RenderDPI)}
			session := pipeline.NewSession(oracle, renderer, fetch.NewFetcher(), pipeline.Options{
				TokenBudget: cfg.TokenBudget,
				ItemCost:    cfg.ItemCost,
				CropMargin:  cfg.CropMargin,
			})
			handler := handlers.New(session, cfg.MaxUploadBytes)

			// Set up routes
			mux := http.NewServeMux()
			mux.HandleFunc("/api/process", handler.HandleProcess)
			mux.HandleFunc("/api/status", handler.HandleStatus)
			mux.HandleFunc("/api/items", handler.HandleItems)
			mux.HandleFunc("/api/items/", handler.HandleItemAction)
			mux.HandleFunc("/api/export", handler.HandleExport)
			mux.HandleFunc("/api/reset", handler.HandleReset)
			mux.HandleFunc("/", handler.HandleStatic)
			mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
				if _, err := w.Write([]byte("OK")); err != nil {
					slog.Error("Unable to write healthcheck", "err", err)
				}
			})

			addr := ":" + cfg.Port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Alt-Text service available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
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
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "alt-text.yaml", "Path to YAML config file")

	return cmd
}
