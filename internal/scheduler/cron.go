package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"plotrisk/internal/config"
	"plotrisk/internal/types"
)

// TriggerScheduler tags runs started by the in-process schedule.
const TriggerScheduler = "scheduler"

// Dispatcher is implemented by JobRunner.
type Dispatcher interface {
	Run(ctx context.Context, p JobPayload) (*JobResult, error)
}

// Entry is one scheduled job.
type Entry struct {
	Spec    string
	Payload JobPayload
}

// EntriesFromConfig returns the configured schedule. A blank spec disables
// that job.
func EntriesFromConfig(cfg config.JobsConfig) []Entry {
	all := []Entry{
		{Spec: cfg.ScheduleForecast, Payload: JobPayload{Task: TaskWeatherUpdate}},
		{Spec: cfg.ScheduleArchive, Payload: JobPayload{Task: TaskDailyArchive}},
		{Spec: cfg.ScheduleRecompute, Payload: JobPayload{Task: TaskRiskRecompute, Mode: types.Mode(cfg.RecomputeMode)}},
	}
	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Spec != "" {
			entries = append(entries, e)
		}
	}
	return entries
}

// Scheduler fires jobs on cron schedules inside the API process. Schedules
// use the standard five-field syntax and are read in the configured zone.
type Scheduler struct {
	cron    *cron.Cron
	jobs    Dispatcher
	timeout time.Duration
	logger  *slog.Logger
}

// NewScheduler creates a Scheduler. timeout bounds a single run; zero means
// no bound.
func NewScheduler(jobs Dispatcher, loc *time.Location, timeout time.Duration, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		jobs:    jobs,
		timeout: timeout,
		logger:  logger,
	}
}

// Add registers a job. It fails on an invalid spec or task.
func (s *Scheduler) Add(e Entry) (cron.EntryID, error) {
	if _, err := ParseTask(string(e.Payload.Task)); err != nil {
		return 0, err
	}
	id, err := s.cron.AddJob(e.Spec, cron.FuncJob(func() { s.fire(e.Payload) }))
	if err != nil {
		return 0, fmt.Errorf("scheduling %s at %q: %w", e.Payload.Task, e.Spec, err)
	}
	s.logger.Info("Job scheduled",
		"task", string(e.Payload.Task),
		"spec", e.Spec,
	)
	return id, nil
}

// Entries returns the registered cron entries.
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Start runs the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled jobs: %w", ctx.Err())
	}
}

func (s *Scheduler) fire(p JobPayload) {
	ctx := types.WithTrigger(context.Background(), TriggerScheduler)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.jobs.Run(ctx, p)
	if err == nil {
		return
	}
	if types.CodeOf(err) == types.ErrCodeConflictJobRunning {
		s.logger.Info("Skipping scheduled job, previous run still active",
			"task", string(p.Task),
		)
		return
	}
	s.logger.Error("Scheduled job failed",
		"task", string(p.Task),
		"error", err,
	)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
