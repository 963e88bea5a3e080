package evaluation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"plotrisk/internal/types"
)

// Growth stage bands, in days since sowing (inclusive upper bounds).
var stageBands = []struct {
	maxDays int
	stage   types.CropStage
}{
	{20, types.StageNursery},
	{45, types.StageTillering},
	{65, types.StagePanicleInit},
	{80, types.StageBooting},
	{100, types.StageHeading},
}

// InferStage derives the growth stage at ref from the sowing date. Without a
// sowing date, or for a reference date before sowing, it returns
// StageUnknown.
func InferStage(sowing *time.Time, ref time.Time) types.CropStage {
	if sowing == nil || sowing.IsZero() || ref.IsZero() {
		return types.StageUnknown
	}
	days := types.DaysBetween(*sowing, ref)
	if days < 0 {
		return types.StageUnknown
	}
	for _, b := range stageBands {
		if days <= b.maxDays {
			return b.stage
		}
	}
	return types.StageMaturity
}

// WindowRange returns the inclusive date range of an n-day window anchored
// at today. PAST ends today; FORECAST starts tomorrow.
func WindowRange(wt types.WindowType, today time.Time, n int) (start, end time.Time) {
	if wt == types.WindowPast {
		return today.AddDate(0, 0, -(n - 1)), today
	}
	return today.AddDate(0, 0, 1), today.AddDate(0, 0, n)
}

// buildWindow reads stored days for the range and attaches crop state.
// Rows outside the range are dropped and duplicate dates keep the last row,
// so the result always has strictly increasing dates.
func (o *Orchestrator) buildWindow(
	ctx context.Context,
	pc *types.PlotContext,
	wt types.WindowType,
	today time.Time,
	n int,
) (*types.WeatherWindow, error) {
	start, end := WindowRange(wt, today, n)

	days, err := o.weather.ReadDays(ctx, pc.Plot.ID, wt, start, end)
	if err != nil {
		return nil, fmt.Errorf("reading %s weather for plot %s: %w", wt, pc.Plot.ID, err)
	}

	w := &types.WeatherWindow{
		PlotID:     pc.Plot.ID,
		Type:       wt,
		Start:      start,
		End:        end,
		Days:       normalizeDays(days, start, end, o.loc),
		Management: pc.Management(),
	}

	if stage, ok := pc.ObservedStage(); ok {
		w.Stage = stage
	} else {
		ref := w.MidpointDate()
		if ref.IsZero() {
			ref = start.Add(end.Sub(start) / 2)
		}
		w.Stage = InferStage(pc.Plot.SowingDate, ref)
	}
	return w, nil
}

func normalizeDays(days []types.WeatherDay, start, end time.Time, loc *time.Location) []types.WeatherDay {
	byDay := make(map[time.Time]types.WeatherDay, len(days))
	for _, d := range days {
		key := types.CalendarDate(d.Date, loc)
		if key.Before(start) || key.After(end) {
			continue
		}
		d.Date = key
		byDay[key] = d
	}
	out := make([]types.WeatherDay, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
