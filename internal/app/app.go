// Package app assembles the risk services from configuration. Both binaries
// build the same graph: pool, repositories, weather provider, ingestor,
// scoring engine, orchestrator, batch runner and job runner.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"plotrisk/internal/config"
	"plotrisk/internal/db"
	"plotrisk/internal/evaluation"
	"plotrisk/internal/external"
	"plotrisk/internal/ingest"
	"plotrisk/internal/risk"
	"plotrisk/internal/scheduler"
)

// Recorder collects evaluation, cache and batch metrics. Implemented by
// observability.Metrics.
type Recorder interface {
	evaluation.Recorder
	scheduler.BatchObserver
	external.CacheObserver
}

// Services is the assembled dependency graph.
type Services struct {
	Location *time.Location
	Defaults evaluation.Options

	Plots   *db.PlotRepository
	Weather *db.WeatherRepository
	Risks   *db.RiskRepository
	Runs    *db.BatchRunRepository

	Engine       *risk.Engine
	Ingestor     *ingest.Ingestor
	Orchestrator *evaluation.Orchestrator
	Runner       *evaluation.Runner
	Jobs         *scheduler.JobRunner
}

// Defaults returns the evaluation defaults configured by RISK_*.
func Defaults(cfg config.RiskConfig) evaluation.Options {
	opts := evaluation.DefaultOptions()
	opts.DaysWindow = cfg.DaysWindow
	opts.AutoIngest = cfg.AutoIngest
	opts.PastWeight = cfg.PastWeight
	opts.FutureWeight = cfg.FutureWeight
	return opts
}

// OpenPool connects to PostgreSQL and verifies the connection.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	pcfg.MaxConns = int32(cfg.MaxConns)
	pcfg.MinConns = int32(cfg.MinConns)
	pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	pcfg.HealthCheckPeriod = cfg.HealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("creating database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.AcquireTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}

// Build wires the services on top of conn. metrics may be nil.
func Build(cfg *config.Config, conn db.DBTX, clock clockwork.Clock, metrics Recorder, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	overrides, err := risk.ParseOverrides(cfg.Risk.ModelOverrides)
	if err != nil {
		return nil, err
	}
	engine, err := risk.NewEngine(overrides)
	if err != nil {
		return nil, err
	}

	s := &Services{
		Location: loc,
		Defaults: Defaults(cfg.Risk),
		Plots:    db.NewPlotRepository(conn),
		Weather:  db.NewWeatherRepository(conn),
		Risks:    db.NewRiskRepository(conn),
		Runs:     db.NewBatchRunRepository(conn),
		Engine:   engine,
	}
	if err := s.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("invalid evaluation defaults: %w", err)
	}

	var (
		evalMetrics  evaluation.Recorder
		batchMetrics scheduler.BatchObserver
		cacheMetrics external.CacheObserver
	)
	if metrics != nil {
		evalMetrics, batchMetrics, cacheMetrics = metrics, metrics, metrics
	}

	clients := external.NewClientRegistry(cfg, clock, cacheMetrics, logger)
	s.Ingestor = ingest.NewIngestor(
		s.Plots,
		clients.Weather,
		s.Weather,
		clock,
		loc,
		cfg.Weather.PlotDelay,
		logger.With("component", "ingest"),
	)
	s.Orchestrator = evaluation.NewOrchestrator(
		s.Plots,
		s.Weather,
		s.Ingestor,
		s.Risks,
		engine,
		clock,
		loc,
		evalMetrics,
		logger.With("component", "evaluation"),
	)
	s.Runner = evaluation.NewRunner(s.Plots, s.Orchestrator, s.Runs, clock, loc, logger.With("component", "runner"))
	s.Jobs = scheduler.NewJobRunner(s.Runner, s.Ingestor, s.Defaults, clock, loc, batchMetrics, logger.With("component", "jobs"))
	return s, nil
}
