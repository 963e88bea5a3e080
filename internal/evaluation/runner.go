package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"plotrisk/internal/types"
)

// PlotLister lists the plots a batch should cover.
type PlotLister interface {
	ListPlots(ctx context.Context, filter types.PlotFilter) ([]types.Plot, error)
}

// PlotEvaluator is the single-plot evaluation the runner iterates.
type PlotEvaluator interface {
	EvaluatePlot(ctx context.Context, plotID string, opts Options) (*Outcome, error)
}

// BatchRecorder stores the run summary. A nil recorder skips the summary.
type BatchRecorder interface {
	RecordBatchRun(ctx context.Context, run *types.BatchRun) error
}

// PlotResult is one entry of a batch. Exactly one of Outcome and Error is set.
type PlotResult struct {
	PlotID   string     `json:"plot_id"`
	PlotName string     `json:"plot_name,omitempty"`
	District string     `json:"district,omitempty"`
	Mandal   string     `json:"mandal,omitempty"`
	Mode     types.Mode `json:"mode"`
	Outcome  *Outcome   `json:"outcome,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// BatchResult is returned by Runner.Run.
type BatchResult struct {
	RunID        string       `json:"run_id"`
	Mode         types.Mode   `json:"mode"`
	DaysWindow   int          `json:"days_window"`
	TotalPlots   int          `json:"total_plots"`
	UpdatedPlots int          `json:"updated_plots"`
	Errors       int          `json:"errors"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Results      []PlotResult `json:"results"`
}

// Runner evaluates every plot sequentially. Plots are never evaluated in
// parallel so the weather provider sees at most one ingestion at a time.
type Runner struct {
	plots    PlotLister
	eval     PlotEvaluator
	recorder BatchRecorder
	clock    clockwork.Clock
	loc      *time.Location
	logger   *slog.Logger
}

// NewRunner creates a Runner. recorder may be nil.
func NewRunner(
	plots PlotLister,
	eval PlotEvaluator,
	recorder BatchRecorder,
	clock clockwork.Clock,
	loc *time.Location,
	logger *slog.Logger,
) *Runner {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		plots:    plots,
		eval:     eval,
		recorder: recorder,
		clock:    clock,
		loc:      loc,
		logger:   logger,
	}
}

// Run evaluates all plots matching filter. A failure on one plot, including
// a panic, is recorded in that plot's result and the batch carries on. Only
// invalid options or a failure to list plots abort the run.
func (r *Runner) Run(ctx context.Context, opts Options, filter types.PlotFilter) (*BatchResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	plots, err := r.plots.ListPlots(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing plots for batch: %w", err)
	}

	res := &BatchResult{
		RunID:      uuid.NewString(),
		Mode:       opts.Mode,
		DaysWindow: opts.DaysWindow,
		TotalPlots: len(plots),
		StartedAt:  r.clock.Now(),
		Results:    make([]PlotResult, 0, len(plots)),
	}

	r.logger.InfoContext(ctx, "Batch evaluation started",
		"run_id", res.RunID,
		"mode", string(opts.Mode),
		"days", opts.DaysWindow,
		"plots", len(plots),
	)

	for _, p := range plots {
		pr := PlotResult{
			PlotID:   p.ID,
			PlotName: p.Name,
			District: p.District,
			Mandal:   p.Mandal,
			Mode:     opts.Mode,
		}
		out, err := r.evaluateOne(ctx, p.ID, opts)
		if err != nil {
			pr.Error = err.Error()
			res.Errors++
			r.logger.ErrorContext(ctx, "Plot evaluation failed",
				"run_id", res.RunID,
				"plot_id", p.ID,
				"error", err,
			)
		} else {
			pr.Outcome = out
			if out.Status == StatusEvaluated {
				res.UpdatedPlots++
			}
		}
		res.Results = append(res.Results, pr)
	}
	res.FinishedAt = r.clock.Now()

	r.logger.InfoContext(ctx, "Batch evaluation finished",
		"run_id", res.RunID,
		"total", res.TotalPlots,
		"updated", res.UpdatedPlots,
		"errors", res.Errors,
		"duration_ms", res.FinishedAt.Sub(res.StartedAt).Milliseconds(),
	)

	if r.recorder != nil {
		run := &types.BatchRun{
			ID:           res.RunID,
			RunDate:      types.StartOfDay(res.StartedAt, r.loc),
			Mode:         res.Mode,
			DaysWindow:   res.DaysWindow,
			TotalPlots:   res.TotalPlots,
			UpdatedPlots: res.UpdatedPlots,
			Errors:       res.Errors,
			StartedAt:    res.StartedAt,
			FinishedAt:   res.FinishedAt,
		}
		if err := r.recorder.RecordBatchRun(ctx, run); err != nil {
			r.logger.WarnContext(ctx, "Failed to record batch summary",
				"run_id", res.RunID,
				"error", err,
			)
		}
	}
	return res, nil
}

// evaluateOne converts a panic inside a single evaluation into an error.
func (r *Runner) evaluateOne(ctx context.Context, plotID string, opts Options) (out *Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "Panic during plot evaluation",
				"plot_id", plotID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			out = nil
			err = fmt.Errorf("panic during evaluation: %v", rec)
		}
	}()
	return r.eval.EvaluatePlot(ctx, plotID, opts)
}
