package evaluation

import (
	"context"
	"errors"
	"sync"
	"time"

	"plotrisk/internal/risk"
	"plotrisk/internal/types"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// 10 July 2025, 06:30 local.
var testNow = time.Date(2025, time.July, 10, 6, 30, 0, 0, ist)

func testToday() time.Time {
	return types.StartOfDay(testNow, ist)
}

// =============================================================================
// Plots
// =============================================================================

type fakePlots struct {
	mu      sync.Mutex
	plots   map[string]*types.PlotContext
	order   []string
	listErr error
}

func newFakePlots(pcs ...*types.PlotContext) *fakePlots {
	f := &fakePlots{plots: make(map[string]*types.PlotContext)}
	for _, pc := range pcs {
		f.plots[pc.Plot.ID] = pc
		f.order = append(f.order, pc.Plot.ID)
	}
	return f
}

func (f *fakePlots) GetPlotContext(_ context.Context, plotID string) (*types.PlotContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pc, ok := f.plots[plotID]
	if !ok {
		return nil, types.NewPlotNotFound(plotID)
	}
	return pc, nil
}

func (f *fakePlots) ListPlots(_ context.Context, _ types.PlotFilter) ([]types.Plot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]types.Plot, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.plots[id].Plot)
	}
	return out, nil
}

func ricePlot(id string) *types.PlotContext {
	return &types.PlotContext{Plot: types.Plot{ID: id, Name: "Plot " + id, District: "Guntur", Mandal: "Tenali", Crop: types.CropRice}}
}

// =============================================================================
// Weather
// =============================================================================

type fakeWeather struct {
	mu    sync.Mutex
	days  map[types.WindowType]map[string][]types.WeatherDay
	errs  map[string]error
	reads int
}

func newFakeWeather() *fakeWeather {
	return &fakeWeather{
		days: map[types.WindowType]map[string][]types.WeatherDay{
			types.WindowPast:     {},
			types.WindowForecast: {},
		},
		errs: map[string]error{},
	}
}

func (f *fakeWeather) ReadDays(_ context.Context, plotID string, wt types.WindowType, from, to time.Time) ([]types.WeatherDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if err := f.errs[plotID]; err != nil {
		return nil, err
	}
	var out []types.WeatherDay
	for _, d := range f.days[wt][plotID] {
		if !d.Date.Before(from) && !d.Date.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

// fill stores n consecutive days starting at start.
func (f *fakeWeather) fill(plotID string, wt types.WindowType, start time.Time, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := 0; i < n; i++ {
		d := types.NewWeatherDay(start.AddDate(0, 0, i))
		d.TempMin, d.TempMax = 22, 31
		d.RHMean, d.RHMorning, d.RHEvening = 88, 94, 80
		d.Rain = 6
		d.SolarRad = 14
		d.Wind = 2
		d.ET0 = 3.5
		f.days[wt][plotID] = append(f.days[wt][plotID], d)
	}
}

// =============================================================================
// Ingestor
// =============================================================================

type fakeIngestor struct {
	mu     sync.Mutex
	calls  []int
	err    error
	onCall func(plotID string, days int)
}

func (f *fakeIngestor) IngestForecast(_ context.Context, plotID string, days int) error {
	f.mu.Lock()
	f.calls = append(f.calls, days)
	hook, err := f.onCall, f.err
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if hook != nil {
		hook(plotID, days)
	}
	return nil
}

func (f *fakeIngestor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// =============================================================================
// Store
// =============================================================================

type fakeStore struct {
	mu     sync.Mutex
	rows   map[types.RiskEventKey]types.RiskEvent
	writes []types.RiskEventKey
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[types.RiskEventKey]types.RiskEvent)}
}

func (f *fakeStore) UpsertRiskEvent(_ context.Context, ev *types.RiskEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[ev.Key()] = *ev
	f.writes = append(f.writes, ev.Key())
	return nil
}

// =============================================================================
// Scorer
// =============================================================================

// fixedScorer scores every disease with a fixed result per window type.
type fixedScorer struct {
	mu     sync.Mutex
	crops  map[types.Crop][]types.Disease
	scores map[types.WindowType]int
	calls  int
}

func (f *fixedScorer) Supports(c types.Crop) bool { return len(f.crops[c]) > 0 }

func (f *fixedScorer) DiseasesFor(c types.Crop) []types.Disease { return f.crops[c] }

func (f *fixedScorer) Score(d types.Disease, w *types.WeatherWindow) (risk.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	s, ok := f.scores[w.Type]
	if !ok {
		return risk.Result{}, errors.New("unexpected window type")
	}
	cls := risk.ClassifyScore(s)
	return risk.Result{
		Disease: d,
		Risk01:  float64(s) / 100,
		Score:   cls.Score,
		Level:   cls.Level,
		Drivers: map[string]float64{"signal": float64(s) / 100},
	}, nil
}

// =============================================================================
// Recorders
// =============================================================================

type fakeBatchRecorder struct {
	mu   sync.Mutex
	runs []types.BatchRun
}

func (f *fakeBatchRecorder) RecordBatchRun(_ context.Context, run *types.BatchRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

type fakeMetrics struct {
	mu          sync.Mutex
	evaluations map[string]int
	written     int
	ingests     map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{evaluations: map[string]int{}, ingests: map[string]int{}}
}

func (f *fakeMetrics) EvaluationCompleted(mode types.Mode, status string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluations[string(mode)+"/"+status]++
}

func (f *fakeMetrics) RiskEventWritten(types.Disease, types.Severity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written++
}

func (f *fakeMetrics) IngestAttempted(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingests[outcome]++
}
