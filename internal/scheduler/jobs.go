package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"plotrisk/internal/evaluation"
	"plotrisk/internal/ingest"
	"plotrisk/internal/types"
)

// BatchEvaluator is implemented by evaluation.Runner.
type BatchEvaluator interface {
	Run(ctx context.Context, opts evaluation.Options, filter types.PlotFilter) (*evaluation.BatchResult, error)
}

// WeatherJobs is implemented by ingest.Ingestor.
type WeatherJobs interface {
	IngestAll(ctx context.Context, filter types.PlotFilter, days int) (*ingest.Summary, error)
	ArchiveAll(ctx context.Context, filter types.PlotFilter, date time.Time) (*ingest.Summary, error)
}

// BatchObserver is implemented by observability.Metrics. May be nil.
type BatchObserver interface {
	BatchFinished(task string, d time.Duration, plotErrors int)
}

// JobRunner routes payloads to the batch services.
type JobRunner struct {
	batch    BatchEvaluator
	weather  WeatherJobs
	defaults evaluation.Options
	clock    clockwork.Clock
	loc      *time.Location
	metrics  BatchObserver
	logger   *slog.Logger

	mu      sync.Mutex
	running map[TaskType]time.Time
}

// NewJobRunner creates a JobRunner. defaults supplies the mode, window,
// auto-ingest flag and blend weights a payload does not override.
func NewJobRunner(
	batch BatchEvaluator,
	weather WeatherJobs,
	defaults evaluation.Options,
	clock clockwork.Clock,
	loc *time.Location,
	metrics BatchObserver,
	logger *slog.Logger,
) *JobRunner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JobRunner{
		batch:    batch,
		weather:  weather,
		defaults: defaults,
		clock:    clock,
		loc:      loc,
		metrics:  metrics,
		logger:   logger,
		running:  make(map[TaskType]time.Time),
	}
}

// Running reports whether task is in progress and since when.
func (j *JobRunner) Running(task TaskType) (time.Time, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	since, ok := j.running[task]
	return since, ok
}

// Prepare validates p and fills in defaults without running anything. The
// returned payload is what Run will execute.
func (j *JobRunner) Prepare(p JobPayload) (JobPayload, error) {
	task, err := ParseTask(string(p.Task))
	if err != nil {
		return p, err
	}
	p.Task = task
	if p.DaysWindow == 0 {
		p.DaysWindow = j.defaults.DaysWindow
	}

	switch task {
	case TaskRiskRecompute:
		if p.Mode == "" {
			p.Mode = j.defaults.Mode
		}
		if _, err := j.options(p); err != nil {
			return p, err
		}
	case TaskWeatherUpdate:
		if p.DaysWindow < evaluation.MinDaysWindow || p.DaysWindow > evaluation.MaxDaysWindow {
			return p, types.NewAppError(types.ErrCodeValidationInvalidDaysWindow,
				fmt.Sprintf("days window must be between %d and %d", evaluation.MinDaysWindow, evaluation.MaxDaysWindow), nil)
		}
	case TaskDailyArchive:
		if _, err := j.archiveDate(p.Date); err != nil {
			return p, err
		}
	}
	return p, nil
}

func (j *JobRunner) options(p JobPayload) (evaluation.Options, error) {
	opts := j.defaults
	opts.Mode = p.Mode
	opts.DaysWindow = p.DaysWindow
	return opts, opts.Validate()
}

func (j *JobRunner) archiveDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, j.loc)
	if err != nil {
		return time.Time{}, types.NewAppError(types.ErrCodeValidationInvalidDate,
			fmt.Sprintf("date must be YYYY-MM-DD, got %q", s), err)
	}
	return d, nil
}

// acquire marks task as running. It fails with conflict_job_running when a
// run is already active.
func (j *JobRunner) acquire(task TaskType) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if since, ok := j.running[task]; ok {
		return types.NewAppErrorWithDetails(types.ErrCodeConflictJobRunning,
			fmt.Sprintf("%s is already running", task), nil,
			map[string]any{"task": string(task), "started_at": since})
	}
	j.running[task] = j.clock.Now()
	return nil
}

func (j *JobRunner) release(task TaskType) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.running, task)
}

// Run validates p, takes the task lock and executes the job synchronously.
func (j *JobRunner) Run(ctx context.Context, p JobPayload) (*JobResult, error) {
	p, err := j.Prepare(p)
	if err != nil {
		return nil, err
	}
	if err := j.acquire(p.Task); err != nil {
		return nil, err
	}
	defer j.release(p.Task)

	return j.execute(ctx, p)
}

// Start validates p and takes the task lock, then runs the job in the
// background with a context detached from ctx. done, if not nil, receives
// the outcome.
func (j *JobRunner) Start(ctx context.Context, p JobPayload, done func(*JobResult, error)) (JobPayload, error) {
	p, err := j.Prepare(p)
	if err != nil {
		return p, err
	}
	if err := j.acquire(p.Task); err != nil {
		return p, err
	}

	bg := context.WithoutCancel(ctx)
	go func() {
		defer j.release(p.Task)
		res, err := j.execute(bg, p)
		if done != nil {
			done(res, err)
		}
	}()
	return p, nil
}

func (j *JobRunner) execute(ctx context.Context, p JobPayload) (*JobResult, error) {
	res := &JobResult{Task: p.Task, StartedAt: j.clock.Now()}
	j.logger.InfoContext(ctx, "Job started",
		"task", string(p.Task),
		"trigger", types.GetTrigger(ctx),
		"mode", string(p.Mode),
		"days", p.DaysWindow,
	)

	var (
		plotErrors int
		err        error
	)
	switch p.Task {
	case TaskRiskRecompute:
		opts, _ := j.options(p)
		res.Batch, err = j.batch.Run(ctx, opts, p.Filter())
		if res.Batch != nil {
			plotErrors = res.Batch.Errors
		}
	case TaskWeatherUpdate:
		res.Ingest, err = j.weather.IngestAll(ctx, p.Filter(), p.DaysWindow)
	case TaskDailyArchive:
		date, _ := j.archiveDate(p.Date)
		res.Ingest, err = j.weather.ArchiveAll(ctx, p.Filter(), date)
	}
	if res.Ingest != nil {
		plotErrors = res.Ingest.Failed
	}
	res.FinishedAt = j.clock.Now()

	if err != nil {
		j.logger.ErrorContext(ctx, "Job failed",
			"task", string(p.Task),
			"error", err,
		)
		return nil, fmt.Errorf("running %s: %w", p.Task, err)
	}

	if j.metrics != nil {
		j.metrics.BatchFinished(string(p.Task), res.FinishedAt.Sub(res.StartedAt), plotErrors)
	}
	j.logger.InfoContext(ctx, "Job finished",
		"task", string(p.Task),
		"plot_errors", plotErrors,
		"duration_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)
	return res, nil
}
