package evaluation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"plotrisk/internal/risk"
	"plotrisk/internal/types"
)

// BlendScores combines a past and a future score. The level is re-derived
// from the blended number; levels themselves are never averaged.
func BlendScores(pastScore, futureScore int, pastWeight, futureWeight float64) risk.Classification {
	combined := math.Round(pastWeight*float64(pastScore) + futureWeight*float64(futureScore))
	return risk.ClassifyScore(int(combined))
}

// horizon is the per-side result of a PROACTIVE evaluation.
type horizon struct {
	present bool
	res     risk.Result
}

func (h horizon) score() int {
	if !h.present {
		return 0
	}
	return h.res.Score
}

func (h horizon) level() types.Severity {
	if !h.present {
		return types.SeverityGreen
	}
	return h.res.Level
}

func (h horizon) drivers() map[string]float64 {
	if !h.present {
		return map[string]float64{}
	}
	return h.res.Drivers
}

func (h horizon) describe(label string) string {
	if !h.present {
		return label + ": no data"
	}
	return fmt.Sprintf("%s: %s (%d)", label, h.res.Level, h.res.Score)
}

// evaluateProactive scores the past and forecast windows separately and
// blends them per disease. Either side may be absent and then counts as
// score 0, level GREEN. Only when both are absent is the result no data.
func (o *Orchestrator) evaluateProactive(ctx context.Context, pc *types.PlotContext, opts Options, out *Outcome) ([]types.RiskEvent, error) {
	today := out.Date
	n := opts.DaysWindow

	past, err := o.buildWindow(ctx, pc, types.WindowPast, today, n)
	if err != nil {
		return nil, err
	}
	if past.Empty() {
		past = nil
	}

	future, futureMsg, err := o.forecastWindow(ctx, pc, today, opts, out)
	if err != nil {
		return nil, err
	}

	if past == nil && future == nil {
		out.Status = StatusNoData
		out.Message = fmt.Sprintf("no data: no observed weather for the past %d days; %s", n, strings.TrimPrefix(futureMsg, "no data: "))
		return nil, nil
	}
	if future == nil {
		out.Message = "forecast side unavailable, " + futureMsg
	} else if past == nil {
		out.Message = "past side unavailable, no observed weather stored"
	}
	if future != nil {
		out.Stage = future.Stage
	} else {
		out.Stage = past.Stage
	}

	diseases := o.engine.DiseasesFor(pc.Plot.Crop)
	events := make([]types.RiskEvent, 0, len(diseases))
	for _, d := range diseases {
		var ph, fh horizon
		if past != nil {
			res, err := o.engine.Score(d, past)
			if err != nil {
				return nil, err
			}
			ph = horizon{present: true, res: res}
		}
		if future != nil {
			res, err := o.engine.Score(d, future)
			if err != nil {
				return nil, err
			}
			fh = horizon{present: true, res: res}
		}

		cls := BlendScores(ph.score(), fh.score(), opts.PastWeight, opts.FutureWeight)
		explanation := ph.describe(fmt.Sprintf("Past %d days", n)) + "; " + fh.describe(fmt.Sprintf("Next %d days", n))
		drivers := types.Drivers{
			"pastScore":     ph.score(),
			"pastLevel":     string(ph.level()),
			"futureScore":   fh.score(),
			"futureLevel":   string(fh.level()),
			"pastDrivers":   ph.drivers(),
			"futureDrivers": fh.drivers(),
		}
		events = append(events, o.newEvent(pc.Plot.ID, d, today, opts, cls.Score, cls.Level, explanation, drivers))
	}
	return events, nil
}
