package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/sales-compare/internal/config"
	"github.com/AngelCh415/sales-compare/internal/httpx"
	"github.com/AngelCh415/sales-compare/internal/ingest"
	"github.com/AngelCh415/sales-compare/internal/metrics"
	"github.com/AngelCh415/sales-compare/internal/models"
	"github.com/AngelCh415/sales-compare/internal/store"
)

func newLogger(w io.Writer, cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// bootstrap loads the dataset once and wraps it in the metrics service.
func bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) (*metrics.Service, ingest.Diagnostics, error) {
	cl := ingest.NewHTTPClient(cfg.Dataset.HTTPTimeout)
	res, err := ingest.NewLoader(cl, logger, cfg.Dataset).Load(ctx)
	if err != nil {
		return nil, ingest.Diagnostics{}, err
	}
	st := store.NewSnapshot(res.Rows)
	return metrics.NewService(st, logger), res.Diagnostics, nil
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	logger := newLogger(os.Stdout, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mSvc, diag, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("cannot load dataset: %w", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           httpx.NewRouter(logger, mSvc, diag, cfg.Server.RateLimit),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		logger.Warn("signal received, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func report(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	// stdout queda solo para el JSON
	logger := newLogger(os.Stderr, cfg)

	mSvc, _, err := bootstrap(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("cannot load dataset: %w", err)
	}

	start, end, err := reportRange(mSvc, reportStart, reportEnd)
	if err != nil {
		return err
	}
	d, err := mSvc.Dashboard(cmd.Context(), start, end)
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	return writeJSON(cmd.OutOrStdout(), d)
}

// reportRange follows the API rules: both flags empty selects the default
// range, a single empty flag is rejected by the period resolver.
func reportRange(mSvc *metrics.Service, start, end string) (time.Time, time.Time, error) {
	if start == "" && end == "" {
		return mSvc.DefaultRange()
	}
	var s, e time.Time
	var err error
	if start != "" {
		if s, err = time.Parse(models.DateLayout, start); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--start: %w", err)
		}
	}
	if end != "" {
		if e, err = time.Parse(models.DateLayout, end); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--end: %w", err)
		}
	}
	return s, e, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	return enc.Encode(v)
}
