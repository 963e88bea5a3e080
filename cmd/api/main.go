// Package main is the entry point for the plot risk API server.
//
// It loads configuration, connects to PostgreSQL, assembles the evaluation
// services and serves the chi router. With SCHEDULER_ENABLED=true the same
// process also runs the forecast, archive and recompute schedule.
//
// SIGINT and SIGTERM trigger a graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"plotrisk/internal/api/handlers"
	"plotrisk/internal/app"
	"plotrisk/internal/config"
	"plotrisk/internal/core"
	"plotrisk/internal/db"
	"plotrisk/internal/observability"
	"plotrisk/internal/scheduler"

	_ "time/tzdata"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig(config.NewFileSecretProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout).With("service", cfg.Service)
	logger.Info("plotrisk API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"timezone", cfg.Timezone,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := app.OpenPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	srv, err := assemble(ctx, cfg, pool, logger)
	if err != nil {
		pool.Close()
		return err
	}
	return serve(ctx, srv, cfg, logger)
}

// assemble builds the services, the router and, when enabled, the schedule.
// The returned server owns the pool and closes it on Shutdown.
func assemble(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (*core.Server, error) {
	if cfg.Database.ApplySchema {
		if err := db.ApplySchema(ctx, pool); err != nil {
			return nil, err
		}
		logger.Info("Database schema applied")
	}

	metrics := observability.NewMetrics()
	svc, err := app.Build(cfg, pool, nil, metrics, logger)
	if err != nil {
		return nil, fmt.Errorf("building services: %w", err)
	}
	srv, err := newServer(cfg, svc, metrics, pool, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Jobs.SchedulerEnabled {
		sched, err := newScheduler(cfg, svc, logger)
		if err != nil {
			return nil, err
		}
		sched.Start()
		// Stop the schedule before the pool closes.
		srv.Closers = append([]func(context.Context) error{sched.Stop}, srv.Closers...)
	}
	return srv, nil
}

// dbPool is the part of *pgxpool.Pool the server needs.
type dbPool interface {
	Ping(ctx context.Context) error
	Close()
}

func newServer(cfg *config.Config, svc *app.Services, metrics *observability.Metrics, pool dbPool, logger *slog.Logger) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.Metrics = metrics
	srv.MetricsHandler = promhttp.Handler()
	srv.HealthProbes = append(srv.HealthProbes, core.DatabaseProbe{DB: pool})
	srv.Closers = append(srv.Closers, func(context.Context) error {
		pool.Close()
		return nil
	})

	if !cfg.Jobs.CronSecret.IsSet() {
		logger.Warn("CRON_SECRET is not set; job endpoints are unauthenticated")
	}

	plotHandler := handlers.NewPlotHandler(svc.Orchestrator, svc.Plots, svc.Risks, svc.Defaults, srv.Validator, logger)
	jobHandler := handlers.NewJobHandler(svc.Jobs, svc.Runs, srv.RequireCronSecret(cfg.Jobs.CronSecret), srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		plotHandler.RegisterRoutes,
		jobHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

func newScheduler(cfg *config.Config, svc *app.Services, logger *slog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.NewScheduler(svc.Jobs, svc.Location, 0, logger.With("component", "scheduler"))
	for _, e := range scheduler.EntriesFromConfig(cfg.Jobs) {
		if _, err := sched.Add(e); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// serve runs the HTTP server until ctx is cancelled by a signal or the
// listener fails, then drains requests and closes server resources within
// the shutdown timeout.
func serve(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		listenErr <- httpServer.ListenAndServe()
	}()

	var failure error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-listenErr:
		if !errors.Is(err, http.ErrServerClosed) {
			failure = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	logger.Info("Initiating graceful shutdown", "timeout", cfg.Server.ShutdownTimeout.String())

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server resource shutdown error", "error", err)
		return errors.Join(failure, fmt.Errorf("server shutdown: %w", err))
	}
	if failure != nil {
		return failure
	}
	logger.Info("Server stopped cleanly")
	return nil
}
