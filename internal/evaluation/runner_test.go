package evaluation

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotrisk/internal/types"
)

func TestRunner_IsolatesPlotFailures(t *testing.T) {
	h := newHarness(t, nil, ricePlot("p1"), ricePlot("p2"), ricePlot("p3"))
	for _, id := range []string{"p1", "p2", "p3"} {
		h.weather.fill(id, types.WindowPast, pastStart(), 7)
	}
	h.weather.errs["p2"] = errors.New("weather read timed out")

	recorder := &fakeBatchRecorder{}
	r := NewRunner(h.plots, h.orch, recorder, clockwork.NewFakeClockAt(testNow), ist, nil)

	res, err := r.Run(context.Background(), opts(types.ModePast), types.PlotFilter{})
	require.NoError(t, err)

	require.Len(t, res.Results, 3)
	assert.Equal(t, "p1", res.Results[0].PlotID)
	assert.Equal(t, StatusEvaluated, res.Results[0].Outcome.Status)
	assert.Empty(t, res.Results[0].Error)

	assert.Equal(t, "p2", res.Results[1].PlotID)
	assert.Nil(t, res.Results[1].Outcome)
	assert.Contains(t, res.Results[1].Error, "weather read timed out")

	assert.Equal(t, "p3", res.Results[2].PlotID)
	assert.Equal(t, StatusEvaluated, res.Results[2].Outcome.Status)
	assert.Len(t, res.Results[2].Outcome.Risks, 4)

	assert.Equal(t, 3, res.TotalPlots)
	assert.Equal(t, 2, res.UpdatedPlots)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, "Guntur", res.Results[0].District)

	require.Len(t, recorder.runs, 1)
	run := recorder.runs[0]
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, 3, run.TotalPlots)
	assert.Equal(t, 2, run.UpdatedPlots)
	assert.Equal(t, 1, run.Errors)
	assert.True(t, run.RunDate.Equal(testToday()))
}

type panickingEvaluator struct {
	next PlotEvaluator
	bad  string
}

func (p *panickingEvaluator) EvaluatePlot(ctx context.Context, plotID string, o Options) (*Outcome, error) {
	if plotID == p.bad {
		panic("nil map in model")
	}
	return p.next.EvaluatePlot(ctx, plotID, o)
}

func TestRunner_RecoversFromPanics(t *testing.T) {
	h := newHarness(t, nil, ricePlot("p1"), ricePlot("p2"))
	h.weather.fill("p1", types.WindowPast, pastStart(), 7)
	h.weather.fill("p2", types.WindowPast, pastStart(), 7)

	r := NewRunner(h.plots, &panickingEvaluator{next: h.orch, bad: "p1"}, nil, clockwork.NewFakeClockAt(testNow), ist, nil)
	res, err := r.Run(context.Background(), opts(types.ModePast), types.PlotFilter{})
	require.NoError(t, err)

	require.Len(t, res.Results, 2)
	assert.Contains(t, res.Results[0].Error, "panic during evaluation")
	assert.Equal(t, StatusEvaluated, res.Results[1].Outcome.Status)
}

func TestRunner_NoDataAndMissingPlotsAreNotUpdates(t *testing.T) {
	// p1 has no weather; "ghost" is listed but deleted before evaluation.
	h := newHarness(t, nil, ricePlot("p1"))
	lister := newFakePlots(ricePlot("p1"), &types.PlotContext{Plot: types.Plot{ID: "ghost"}})

	r := NewRunner(lister, h.orch, nil, clockwork.NewFakeClockAt(testNow), ist, nil)
	res, err := r.Run(context.Background(), opts(types.ModePast), types.PlotFilter{})
	require.NoError(t, err)

	assert.Equal(t, StatusNoData, res.Results[0].Outcome.Status)
	assert.Contains(t, res.Results[1].Error, "plot not found")
	assert.Equal(t, 0, res.UpdatedPlots)
	assert.Equal(t, 1, res.Errors)
}

func TestRunner_AbortsOnListFailureAndBadOptions(t *testing.T) {
	h := newHarness(t, nil)
	h.plots.listErr = errors.New("db down")
	r := NewRunner(h.plots, h.orch, nil, nil, nil, nil)

	_, err := r.Run(context.Background(), opts(types.ModePast), types.PlotFilter{})
	assert.ErrorContains(t, err, "db down")

	bad := opts(types.ModePast)
	bad.Mode = "NOPE"
	_, err = r.Run(context.Background(), bad, types.PlotFilter{})
	assert.Equal(t, types.ErrCodeValidationInvalidMode, types.CodeOf(err))
}
