// Package ingest fetches weather for plots from the configured provider and
// stores it as daily rows. Forecast ingestion runs on demand from the
// evaluator and on a schedule; the daily archive keeps observed weather for
// PAST evaluations.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"plotrisk/internal/external"
	"plotrisk/internal/types"
)

// PlotSource resolves plots for ingestion.
type PlotSource interface {
	GetPlot(ctx context.Context, plotID string) (*types.Plot, error)
	ListPlots(ctx context.Context, filter types.PlotFilter) ([]types.Plot, error)
}

// WeatherWriter stores mapped days and the raw provider payload.
type WeatherWriter interface {
	UpsertDays(ctx context.Context, plotID string, wt types.WindowType, days []types.WeatherDay) (int, error)
	SavePayload(ctx context.Context, plotID, kind, encoding string, payload []byte) error
}

// Payload kinds.
const (
	KindForecast = "forecast"
	KindArchive  = "archive"
)

// Summary reports a multi-plot ingestion run.
type Summary struct {
	Kind       string    `json:"kind"`
	TotalPlots int       `json:"total_plots"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	DaysStored int       `json:"days_stored"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Ingestor moves provider weather into storage.
type Ingestor struct {
	plots    PlotSource
	provider external.WeatherProvider
	writer   WeatherWriter
	clock    clockwork.Clock
	loc      *time.Location
	delay    time.Duration
	logger   *slog.Logger
}

// NewIngestor creates an Ingestor. delay is the pause between plots in the
// multi-plot runs and keeps the provider below its rate limit.
func NewIngestor(
	plots PlotSource,
	provider external.WeatherProvider,
	writer WeatherWriter,
	clock clockwork.Clock,
	loc *time.Location,
	delay time.Duration,
	logger *slog.Logger,
) *Ingestor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		plots:    plots,
		provider: provider,
		writer:   writer,
		clock:    clock,
		loc:      loc,
		delay:    delay,
		logger:   logger,
	}
}

func (in *Ingestor) today() time.Time {
	return types.StartOfDay(in.clock.Now(), in.loc)
}

// IngestForecast fetches and stores forecast days today+1 through
// today+days for one plot.
func (in *Ingestor) IngestForecast(ctx context.Context, plotID string, days int) error {
	if days < 1 {
		return types.NewAppError(types.ErrCodeValidationInvalidDaysWindow, fmt.Sprintf("days must be at least 1, got %d", days), nil)
	}
	today := in.today()
	_, err := in.ingest(ctx, plotID, types.WindowForecast, KindForecast, today.AddDate(0, 0, 1), today.AddDate(0, 0, days))
	return err
}

// SyncDailyArchive stores the observed weather of date for one plot. A zero
// date means yesterday.
func (in *Ingestor) SyncDailyArchive(ctx context.Context, plotID string, date time.Time) error {
	if date.IsZero() {
		date = in.today().AddDate(0, 0, -1)
	} else {
		date = types.StartOfDay(date, in.loc)
	}
	_, err := in.ingest(ctx, plotID, types.WindowPast, KindArchive, date, date)
	return err
}

func (in *Ingestor) ingest(
	ctx context.Context,
	plotID string,
	wt types.WindowType,
	kind string,
	start, end time.Time,
) (int, error) {
	plot, err := in.plots.GetPlot(ctx, plotID)
	if err != nil {
		return 0, err
	}
	if plot.Location == nil {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidLocation,
			fmt.Sprintf("plot %s has no location", plotID), nil)
	}

	fc, err := in.provider.FetchDaily(ctx, external.Query{
		Lat:      plot.Location.Lat,
		Lng:      plot.Location.Lng,
		Start:    start,
		End:      end,
		Timezone: in.loc.String(),
	})
	if err != nil {
		return 0, err
	}

	days := filterRange(MapDays(fc, in.loc), start, end)
	n, err := in.writer.UpsertDays(ctx, plotID, wt, days)
	if err != nil {
		return n, err
	}

	if len(fc.Raw) > 0 {
		in.savePayload(ctx, plotID, kind, fc.Raw)
	}

	in.logger.InfoContext(ctx, "Weather ingested",
		"plot_id", plotID,
		"kind", kind,
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"days", n,
	)
	return n, nil
}

// savePayload keeps the raw response for audit. Failures only log.
func (in *Ingestor) savePayload(ctx context.Context, plotID, kind string, raw []byte) {
	compressed, err := CompressPayload(raw)
	if err == nil {
		err = in.writer.SavePayload(ctx, plotID, kind, PayloadEncoding, compressed)
	}
	if err != nil {
		in.logger.WarnContext(ctx, "Failed to store raw weather payload",
			"plot_id", plotID,
			"kind", kind,
			"error", err,
		)
	}
}

// filterRange drops days the provider returned outside [start, end].
func filterRange(days []types.WeatherDay, start, end time.Time) []types.WeatherDay {
	out := days[:0]
	for _, d := range days {
		if types.DaysBetween(start, d.Date) < 0 || types.DaysBetween(d.Date, end) < 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}

// IngestAll runs IngestForecast for every plot matching filter.
func (in *Ingestor) IngestAll(ctx context.Context, filter types.PlotFilter, days int) (*Summary, error) {
	if days < 1 {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidDaysWindow, fmt.Sprintf("days must be at least 1, got %d", days), nil)
	}
	today := in.today()
	return in.each(ctx, filter, KindForecast, func(ctx context.Context, p types.Plot) (int, error) {
		return in.ingest(ctx, p.ID, types.WindowForecast, KindForecast, today.AddDate(0, 0, 1), today.AddDate(0, 0, days))
	})
}

// ArchiveAll runs SyncDailyArchive for every plot matching filter.
func (in *Ingestor) ArchiveAll(ctx context.Context, filter types.PlotFilter, date time.Time) (*Summary, error) {
	if date.IsZero() {
		date = in.today().AddDate(0, 0, -1)
	} else {
		date = types.StartOfDay(date, in.loc)
	}
	return in.each(ctx, filter, KindArchive, func(ctx context.Context, p types.Plot) (int, error) {
		return in.ingest(ctx, p.ID, types.WindowPast, KindArchive, date, date)
	})
}

// each walks plots sequentially with the configured delay between them.
// Plots without a location are counted as failures.
func (in *Ingestor) each(
	ctx context.Context,
	filter types.PlotFilter,
	kind string,
	fn func(ctx context.Context, p types.Plot) (int, error),
) (*Summary, error) {
	plots, err := in.plots.ListPlots(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing plots for %s ingestion: %w", kind, err)
	}

	s := &Summary{Kind: kind, TotalPlots: len(plots), StartedAt: in.clock.Now()}
	for i, p := range plots {
		if i > 0 && in.delay > 0 {
			select {
			case <-ctx.Done():
				s.FinishedAt = in.clock.Now()
				return s, ctx.Err()
			case <-in.clock.After(in.delay):
			}
		}
		n, err := fn(ctx, p)
		if err != nil {
			s.Failed++
			in.logger.ErrorContext(ctx, "Plot ingestion failed",
				"plot_id", p.ID,
				"kind", kind,
				"error", err,
			)
			continue
		}
		s.Succeeded++
		s.DaysStored += n
	}
	s.FinishedAt = in.clock.Now()

	in.logger.InfoContext(ctx, "Ingestion run finished",
		"kind", kind,
		"total", s.TotalPlots,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"days", s.DaysStored,
	)
	return s, nil
}
