// Package evaluation turns stored weather into persisted risk events. The
// Orchestrator evaluates one plot for one mode; the Runner walks every plot
// sequentially and isolates per-plot failures.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"plotrisk/internal/risk"
	"plotrisk/internal/types"
)

// =============================================================================
// Collaborators
// =============================================================================

// PlotProvider resolves a plot id to its evaluation context. It returns an
// AppError with ErrCodeNotFoundPlot when the plot does not exist.
type PlotProvider interface {
	GetPlotContext(ctx context.Context, plotID string) (*types.PlotContext, error)
}

// WeatherReader reads stored daily weather for a plot. PAST windows read the
// observed archive, FORECAST windows the forecast table. Missing days are
// simply absent from the result.
type WeatherReader interface {
	ReadDays(ctx context.Context, plotID string, wt types.WindowType, from, to time.Time) ([]types.WeatherDay, error)
}

// ForecastIngestor fetches and stores forecast days for a plot.
type ForecastIngestor interface {
	IngestForecast(ctx context.Context, plotID string, days int) error
}

// RiskStore persists risk events. UpsertRiskEvent must be atomic on the
// (plot, disease, date, source) key; concurrent writers converge to the last
// write.
type RiskStore interface {
	UpsertRiskEvent(ctx context.Context, ev *types.RiskEvent) error
}

// Scorer is the disease dispatch and scoring engine.
type Scorer interface {
	Supports(crop types.Crop) bool
	DiseasesFor(crop types.Crop) []types.Disease
	Score(d types.Disease, w *types.WeatherWindow) (risk.Result, error)
}

// Recorder receives evaluation metrics. A nil Recorder is ignored.
type Recorder interface {
	EvaluationCompleted(mode types.Mode, status string)
	RiskEventWritten(disease types.Disease, level types.Severity)
	IngestAttempted(outcome string)
}

// =============================================================================
// Outcome
// =============================================================================

// Status is the terminal state of one evaluation.
type Status string

const (
	StatusEvaluated       Status = "evaluated"
	StatusNoData          Status = "no_data"
	StatusUnsupportedCrop Status = "unsupported_crop"
)

// Outcome is the structured result of EvaluatePlot.
type Outcome struct {
	PlotID     string            `json:"plot_id"`
	Crop       types.Crop        `json:"crop"`
	Mode       types.Mode        `json:"mode"`
	Date       time.Time         `json:"date"`
	DaysWindow int               `json:"days_window"`
	Status     Status            `json:"status"`
	Message    string            `json:"message,omitempty"`
	Stage      types.CropStage   `json:"stage,omitempty"`
	Ingested   bool              `json:"ingested"`
	Risks      []types.RiskEvent `json:"risks"`
}

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator evaluates a single plot for a single mode.
type Orchestrator struct {
	plots   PlotProvider
	weather WeatherReader
	ingest  ForecastIngestor
	store   RiskStore
	engine  Scorer
	clock   clockwork.Clock
	loc     *time.Location
	metrics Recorder
	logger  *slog.Logger
}

// NewOrchestrator wires an Orchestrator. A nil clock uses the real clock, a
// nil location uses UTC, a nil logger uses slog.Default(). ingest may be nil,
// in which case auto-ingest requests are treated as ingestion failures.
func NewOrchestrator(
	plots PlotProvider,
	weather WeatherReader,
	ingest ForecastIngestor,
	store RiskStore,
	engine Scorer,
	clock clockwork.Clock,
	loc *time.Location,
	metrics Recorder,
	logger *slog.Logger,
) *Orchestrator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		plots:   plots,
		weather: weather,
		ingest:  ingest,
		store:   store,
		engine:  engine,
		clock:   clock,
		loc:     loc,
		metrics: metrics,
		logger:  logger,
	}
}

// Today returns local midnight of the current day.
func (o *Orchestrator) Today() time.Time {
	return types.StartOfDay(o.clock.Now(), o.loc)
}

// EvaluatePlot runs the full evaluation for one plot and persists one risk
// event per applicable disease.
//
// Missing weather, ingestion failures and unsupported crops are reported in
// the Outcome, never as errors. The returned error is reserved for invalid
// options, an unknown plot (ErrCodeNotFoundPlot) and storage failures.
func (o *Orchestrator) EvaluatePlot(ctx context.Context, plotID string, opts Options) (*Outcome, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	pc, err := o.plots.GetPlotContext(ctx, plotID)
	if err != nil {
		return nil, err
	}

	out := &Outcome{
		PlotID:     pc.Plot.ID,
		Crop:       pc.Plot.Crop,
		Mode:       opts.Mode,
		Date:       o.Today(),
		DaysWindow: opts.DaysWindow,
		Risks:      []types.RiskEvent{},
	}

	if !o.engine.Supports(pc.Plot.Crop) {
		out.Status = StatusUnsupportedCrop
		out.Message = fmt.Sprintf("unsupported crop %q: no risks computed", pc.Plot.Crop)
		o.logger.InfoContext(ctx, "Skipping plot with unsupported crop",
			"plot_id", plotID,
			"crop", string(pc.Plot.Crop),
		)
		o.finish(out)
		return out, nil
	}

	var events []types.RiskEvent
	switch opts.Mode {
	case types.ModePast, types.ModeForecast:
		events, err = o.evaluateSingle(ctx, pc, opts, out)
	case types.ModeProactive:
		events, err = o.evaluateProactive(ctx, pc, opts, out)
	}
	if err != nil {
		return nil, err
	}
	if out.Status == StatusNoData {
		o.logger.WarnContext(ctx, "No usable weather for evaluation",
			"plot_id", plotID,
			"mode", string(opts.Mode),
			"message", out.Message,
		)
		o.finish(out)
		return out, nil
	}

	for i := range events {
		if err := o.store.UpsertRiskEvent(ctx, &events[i]); err != nil {
			return nil, fmt.Errorf("persisting %s risk for plot %s: %w", events[i].Disease, plotID, err)
		}
		if o.metrics != nil {
			o.metrics.RiskEventWritten(events[i].Disease, events[i].Severity)
		}
	}
	out.Status = StatusEvaluated
	out.Risks = events

	o.logger.InfoContext(ctx, "Plot evaluated",
		"plot_id", plotID,
		"mode", string(opts.Mode),
		"days", opts.DaysWindow,
		"diseases", len(events),
		"stage", string(out.Stage),
	)
	o.finish(out)
	return out, nil
}

func (o *Orchestrator) finish(out *Outcome) {
	if o.metrics != nil {
		o.metrics.EvaluationCompleted(out.Mode, string(out.Status))
	}
}

// evaluateSingle handles PAST and FORECAST.
func (o *Orchestrator) evaluateSingle(ctx context.Context, pc *types.PlotContext, opts Options, out *Outcome) ([]types.RiskEvent, error) {
	today := out.Date

	var (
		w   *types.WeatherWindow
		msg string
		err error
	)
	if opts.Mode == types.ModePast {
		w, err = o.buildWindow(ctx, pc, types.WindowPast, today, opts.DaysWindow)
		if err != nil {
			return nil, err
		}
		if w.Empty() {
			msg = fmt.Sprintf("no data: no observed weather for the %d days ending %s", opts.DaysWindow, today.Format(time.DateOnly))
			w = nil
		}
	} else {
		w, msg, err = o.forecastWindow(ctx, pc, today, opts, out)
		if err != nil {
			return nil, err
		}
	}
	if w == nil {
		out.Status = StatusNoData
		out.Message = msg
		return nil, nil
	}
	out.Stage = w.Stage

	events := make([]types.RiskEvent, 0, len(o.engine.DiseasesFor(pc.Plot.Crop)))
	for _, d := range o.engine.DiseasesFor(pc.Plot.Crop) {
		res, err := o.engine.Score(d, w)
		if err != nil {
			return nil, err
		}
		events = append(events, o.newEvent(pc.Plot.ID, d, today, opts, res.Score, res.Level, res.Explanation, res.DriversJSON()))
	}
	return events, nil
}

// forecastWindow builds the forecast window, ingesting at most once when it
// is short. A nil window with a message means no usable forecast.
func (o *Orchestrator) forecastWindow(
	ctx context.Context,
	pc *types.PlotContext,
	today time.Time,
	opts Options,
	out *Outcome,
) (*types.WeatherWindow, string, error) {
	n := opts.DaysWindow
	w, err := o.buildWindow(ctx, pc, types.WindowForecast, today, n)
	if err != nil {
		return nil, "", err
	}
	if w.Complete() {
		return w, "", nil
	}

	if !opts.AutoIngest {
		if w.Empty() {
			return nil, fmt.Sprintf("no data: no forecast stored for the next %d days", n), nil
		}
		return w, "", nil
	}

	out.Ingested = true
	have := len(w.Days)
	if err := o.ingestForecast(ctx, pc.Plot.ID, n); err != nil {
		o.logger.ErrorContext(ctx, "Forecast ingestion failed",
			"plot_id", pc.Plot.ID,
			"days", n,
			"error", err,
		)
		if o.metrics != nil {
			o.metrics.IngestAttempted("error")
		}
		return nil, fmt.Sprintf("no data: failed to ingest weather data: %v", err), nil
	}
	if o.metrics != nil {
		o.metrics.IngestAttempted("ok")
	}

	w, err = o.buildWindow(ctx, pc, types.WindowForecast, today, n)
	if err != nil {
		return nil, "", err
	}
	if !w.Complete() {
		return nil, fmt.Sprintf("no data: forecast has %d of %d days after ingestion (had %d before)", len(w.Days), n, have), nil
	}
	return w, "", nil
}

func (o *Orchestrator) ingestForecast(ctx context.Context, plotID string, days int) error {
	if o.ingest == nil {
		return fmt.Errorf("forecast ingestion is not configured")
	}
	return o.ingest.IngestForecast(ctx, plotID, days)
}

func (o *Orchestrator) newEvent(
	plotID string,
	d types.Disease,
	today time.Time,
	opts Options,
	score int,
	level types.Severity,
	explanation string,
	drivers types.Drivers,
) types.RiskEvent {
	now := o.clock.Now()
	return types.RiskEvent{
		ID:          uuid.NewString(),
		PlotID:      plotID,
		Disease:     d,
		Date:        today,
		Severity:    level,
		Score:       score,
		HorizonDays: opts.DaysWindow,
		Explanation: explanation,
		Drivers:     drivers,
		Mode:        opts.Mode,
		Source:      opts.Mode.Source(),
		CreatedBy:   types.CreatedByRuleEngine,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
