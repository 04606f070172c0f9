package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/incident-router/internal/core/config"
	"github.com/mohammed-shakir/incident-router/internal/core/health"
	middleware "github.com/mohammed-shakir/incident-router/internal/core/middleware"
	"github.com/mohammed-shakir/incident-router/internal/core/router"
	"github.com/mohammed-shakir/incident-router/internal/export"
)

// Deps are the collaborators the HTTP layer serves from.
type Deps struct {
	Service   router.RouteService
	Readiness health.ReadinessReporter
	Metrics   http.Handler
	Overlay   []export.OverlayOption // extra layers for GeoJSON route responses
}

// NewHandler builds the chi router with middleware and every endpoint.
func NewHandler(cfg config.Config, logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	if d.Readiness != nil {
		r.Get("/readyz", health.Readiness(d.Readiness))
	}
	if cfg.MetricsEnabled && d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		r.Get("/route", router.HandleRoute(logger, cfg, d.Service, d.Overlay...))
		r.Get("/facilities", router.HandleFacilities(logger, d.Service))
		r.Get("/hotspots", router.HandleHotspots(logger, d.Service))
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
