package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"plotrisk/internal/evaluation"
	"plotrisk/internal/types"
)

type fakeEvaluator struct {
	gotID   string
	gotOpts evaluation.Options
	out     *evaluation.Outcome
	err     error
}

func (f *fakeEvaluator) EvaluatePlot(_ context.Context, plotID string, opts evaluation.Options) (*evaluation.Outcome, error) {
	f.gotID = plotID
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if f.out != nil {
		return f.out, nil
	}
	return &evaluation.Outcome{PlotID: plotID, Mode: opts.Mode, Status: evaluation.StatusEvaluated, Risks: []types.RiskEvent{}}, nil
}

type fakePlots map[string]*types.Plot

func (f fakePlots) GetPlot(_ context.Context, id string) (*types.Plot, error) {
	if p, ok := f[id]; ok {
		return p, nil
	}
	return nil, types.NewPlotNotFound(id)
}

type fakeRisks struct {
	events    []types.RiskEvent
	gotLimit  int
	gotFilter types.PlotFilter
}

func (f *fakeRisks) ListForPlot(_ context.Context, _ string, limit int) ([]types.RiskEvent, error) {
	f.gotLimit = limit
	return f.events, nil
}

func (f *fakeRisks) LatestByPlot(_ context.Context, filter types.PlotFilter) ([]types.RiskEvent, error) {
	f.gotFilter = filter
	return f.events, nil
}

func newPlotRouter(eval *fakeEvaluator, risks *fakeRisks) http.Handler {
	plots := fakePlots{"p1": {ID: "p1", Name: "North field", Crop: types.CropRice}}
	h := NewPlotHandler(eval, plots, risks, evaluation.DefaultOptions(), nil, quietLogger())
	return newV1Router(h.RegisterRoutes)
}

func TestHandleEvaluate_Defaults(t *testing.T) {
	eval := &fakeEvaluator{}
	rec := do(t, newPlotRouter(eval, &fakeRisks{}), http.MethodPost, "/v1/plots/p1/evaluate", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if eval.gotID != "p1" {
		t.Errorf("plot id = %q", eval.gotID)
	}
	if eval.gotOpts != evaluation.DefaultOptions() {
		t.Errorf("opts = %+v, want defaults", eval.gotOpts)
	}

	var out evaluation.Outcome
	decodeData(t, rec, &out)
	if out.Status != evaluation.StatusEvaluated {
		t.Errorf("status = %q", out.Status)
	}
}

func TestHandleEvaluate_QueryThenBody(t *testing.T) {
	eval := &fakeEvaluator{}
	body := `{"mode":"PROACTIVE","past_weight":0.5,"future_weight":0.5,"auto_ingest":false}`
	rec := do(t, newPlotRouter(eval, &fakeRisks{}), http.MethodPost, "/v1/plots/p1/evaluate?mode=past&daysWindow=5", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	want := evaluation.Options{Mode: types.ModeProactive, DaysWindow: 5, AutoIngest: false, PastWeight: 0.5, FutureWeight: 0.5}
	if eval.gotOpts != want {
		t.Errorf("opts = %+v, want %+v", eval.gotOpts, want)
	}
}

func TestHandleEvaluate_NoDataWarning(t *testing.T) {
	eval := &fakeEvaluator{out: &evaluation.Outcome{
		PlotID:  "p1",
		Status:  evaluation.StatusNoData,
		Message: "no data: no forecast stored for the next 7 days",
		Risks:   []types.RiskEvent{},
	}}
	rec := do(t, newPlotRouter(eval, &fakeRisks{}), http.MethodPost, "/v1/plots/p1/evaluate", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	meta := decodeData(t, rec, nil)
	if meta == nil || len(meta.Warnings) != 1 {
		t.Fatalf("meta = %+v, want one warning", meta)
	}
}

func TestHandleEvaluate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		err    error
		status int
		code   string
	}{
		{"bad mode query", "/v1/plots/p1/evaluate?mode=LIVE", "", nil, http.StatusBadRequest, string(types.ErrCodeValidationInvalidMode)},
		{"non-numeric days", "/v1/plots/p1/evaluate?days_window=abc", "", nil, http.StatusBadRequest, string(types.ErrCodeValidationInvalidDaysWindow)},
		{"days out of range in body", "/v1/plots/p1/evaluate", `{"days_window":30}`, nil, http.StatusBadRequest, string(types.ErrCodeValidationInvalidRequest)},
		{"unknown field", "/v1/plots/p1/evaluate", `{"window":3}`, nil, http.StatusBadRequest, "validation_invalid_json"},
		{"plot not found", "/v1/plots/nope/evaluate", "", types.NewPlotNotFound("nope"), http.StatusNotFound, string(types.ErrCodeNotFoundPlot)},
		{"storage failure", "/v1/plots/p1/evaluate", "", types.NewAppError(types.ErrCodeInternalDB, "db", nil), http.StatusInternalServerError, string(types.ErrCodeInternalDB)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := &fakeEvaluator{err: tt.err}
			rec := do(t, newPlotRouter(eval, &fakeRisks{}), http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body.String())
			}
			if got := errorCode(t, rec); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestHandleListRisks(t *testing.T) {
	risks := &fakeRisks{events: []types.RiskEvent{
		{ID: "e1", PlotID: "p1", Disease: types.DiseasePaddyBlast, Date: time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC), Severity: types.SeverityYellow, Score: 45},
	}}
	router := newPlotRouter(&fakeEvaluator{}, risks)

	rec := do(t, router, http.MethodGet, "/v1/plots/p1/risks?limit=5000", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if risks.gotLimit != maxRiskLimit {
		t.Errorf("limit = %d, want cap %d", risks.gotLimit, maxRiskLimit)
	}
	var events []types.RiskEvent
	meta := decodeData(t, rec, &events)
	if len(events) != 1 || meta.Count != 1 {
		t.Errorf("events = %d, count = %d", len(events), meta.Count)
	}

	rec = do(t, router, http.MethodGet, "/v1/plots/ghost/risks", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown plot status = %d, want 404", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/plots/p1/risks?limit=0", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0 status = %d, want 400", rec.Code)
	}
}

func TestHandleLatestRisks_Filter(t *testing.T) {
	risks := &fakeRisks{events: []types.RiskEvent{}}
	rec := do(t, newPlotRouter(&fakeEvaluator{}, risks), http.MethodGet, "/v1/risks/latest?district=Guntur&mandal=%20Tenali%20", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	want := types.PlotFilter{District: "Guntur", Mandal: "Tenali"}
	if risks.gotFilter != want {
		t.Errorf("filter = %+v, want %+v", risks.gotFilter, want)
	}
	var events []types.RiskEvent
	decodeData(t, rec, &events)
	if events == nil {
		t.Error("want an empty array, not null")
	}
}
