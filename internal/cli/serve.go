package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/metrics"
	"github.com/kailas-cloud/ragdex/internal/transport/httpapi"
	"github.com/kailas-cloud/ragdex/internal/version"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query path over HTTP",
	Long: `Loads the vector index once and serves POST /query, GET /health and
GET /metrics until interrupted. Artifacts are not watched: restart after
re-running slice or embed.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	metrics.RegisterHTTPMetrics()

	svc, err := a.queryService(cmd.Context(), nil)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(svc, httpapi.Defaults{
		TopK:          a.cfg.Retrieval.TopK,
		MinScore:      a.cfg.Retrieval.MinScore,
		ContextTokens: a.cfg.Context.MaxTokens,
	}, a.logger)

	addr := fmt.Sprintf(":%d", a.cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(a.cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(a.cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server",
			zap.String("addr", addr),
			zap.String("version", version.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		a.logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(a.cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.logger.Info("Server stopped gracefully")
	return nil
}
