// Package server wires the HTTP surface and runs it until the context ends.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/wherewolf/internal/core/config"
	"github.com/mohammed-shakir/wherewolf/internal/core/health"
	middleware "github.com/mohammed-shakir/wherewolf/internal/core/middleware"
	"github.com/mohammed-shakir/wherewolf/internal/core/router"
)

// Handler builds the full route tree. A nil metrics handler falls back to
// the default Prometheus registry.
func Handler(logger *slog.Logger, deps router.Deps, metrics http.Handler) http.Handler {
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(deps.Store))
	r.Method(http.MethodGet, "/metrics", metrics)

	deps.Logger = logger
	router.Mount(r, deps)
	return r
}

// Run sets up http and serves until ctx is cancelled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, h http.Handler) error {
	readHeader := cfg.ReadHeaderTimeout
	if readHeader <= 0 {
		readHeader = 5 * time.Second
	}
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		timeout := cfg.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
