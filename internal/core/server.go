// Package core provides the HTTP chassis for the plot risk API. It builds a
// chi router with the cross-cutting middleware (panic recovery, request ids,
// logging, metrics) and leaves domain routes to registrars supplied by the
// entry point.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"plotrisk/internal/config"
)

// HTTPMetrics records served requests.
type HTTPMetrics interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// RouteRegistrar mounts a group of endpoints under /v1.
type RouteRegistrar func(r chi.Router)

// Server holds the router and its dependencies.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// Metrics and MetricsHandler are optional. MetricsHandler is served at
	// /metrics when set.
	Metrics        HTTPMetrics
	MetricsHandler http.Handler

	HealthProbes      []HealthProbe
	V1RouteRegistrars []RouteRegistrar

	// Closers run in order on Shutdown.
	Closers []func(ctx context.Context) error

	router *chi.Mux
}

// NewServer validates the critical dependencies and prepares an empty
// router. Call MountRoutes after all registrars are appended.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown runs every closer and joins their errors.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "Server shutdown initiated")

	var errs []error
	for _, c := range s.Closers {
		if err := c(ctx); err != nil {
			s.Logger.ErrorContext(ctx, "Error closing server resource", "error", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing server resources: %w", err)
	}

	s.Logger.InfoContext(ctx, "Server shutdown complete")
	return nil
}
