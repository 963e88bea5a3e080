package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"plotrisk/internal/core"
	"plotrisk/internal/evaluation"
	"plotrisk/internal/types"
)

// PlotEvaluator is implemented by evaluation.Orchestrator.
type PlotEvaluator interface {
	EvaluatePlot(ctx context.Context, plotID string, opts evaluation.Options) (*evaluation.Outcome, error)
}

// PlotGetter resolves a plot. It returns ErrCodeNotFoundPlot for unknown ids.
type PlotGetter interface {
	GetPlot(ctx context.Context, plotID string) (*types.Plot, error)
}

// RiskReader reads stored risk events.
type RiskReader interface {
	ListForPlot(ctx context.Context, plotID string, limit int) ([]types.RiskEvent, error)
	LatestByPlot(ctx context.Context, filter types.PlotFilter) ([]types.RiskEvent, error)
}

// EvaluateRequest is the optional JSON body of POST /v1/plots/{plotID}/evaluate.
// Unset fields keep the query parameter or configured default.
type EvaluateRequest struct {
	Mode         string   `json:"mode" validate:"omitempty,risk_mode"`
	DaysWindow   *int     `json:"days_window" validate:"omitempty,min=1,max=16"`
	AutoIngest   *bool    `json:"auto_ingest"`
	PastWeight   *float64 `json:"past_weight" validate:"omitempty,gte=0"`
	FutureWeight *float64 `json:"future_weight" validate:"omitempty,gte=0"`
}

func (req EvaluateRequest) apply(opts evaluation.Options) evaluation.Options {
	if req.Mode != "" {
		opts.Mode = types.Mode(req.Mode)
	}
	if req.DaysWindow != nil {
		opts.DaysWindow = *req.DaysWindow
	}
	if req.AutoIngest != nil {
		opts.AutoIngest = *req.AutoIngest
	}
	if req.PastWeight != nil {
		opts.PastWeight = *req.PastWeight
	}
	if req.FutureWeight != nil {
		opts.FutureWeight = *req.FutureWeight
	}
	return opts
}

// PlotHandler serves single-plot evaluation and risk reads.
type PlotHandler struct {
	eval      PlotEvaluator
	plots     PlotGetter
	risks     RiskReader
	defaults  evaluation.Options
	validator *core.Validator
	logger    *slog.Logger
}

// NewPlotHandler creates a PlotHandler. defaults seeds every evaluation.
func NewPlotHandler(
	eval PlotEvaluator,
	plots PlotGetter,
	risks RiskReader,
	defaults evaluation.Options,
	val *core.Validator,
	logger *slog.Logger,
) *PlotHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &PlotHandler{
		eval:      eval,
		plots:     plots,
		risks:     risks,
		defaults:  defaults,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the plot and risk endpoints under /v1.
func (h *PlotHandler) RegisterRoutes(r chi.Router) {
	r.Post("/plots/{plotID}/evaluate", h.HandleEvaluate)
	r.Get("/plots/{plotID}/risks", h.HandleListRisks)
	r.Get("/risks/latest", h.HandleLatestRisks)
}

// HandleEvaluate handles POST /v1/plots/{plotID}/evaluate.
//
// Options come from the defaults, then ?mode= and ?days_window=, then the
// JSON body. The outcome is returned with 200 for every terminal status;
// no_data and unsupported_crop are not errors.
func (h *PlotHandler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	plotID := chi.URLParam(r, "plotID")

	opts := h.defaults
	mode, err := queryMode(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if mode != "" {
		opts.Mode = mode
	}
	days, err := queryDays(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if days != 0 {
		opts.DaysWindow = days
	}

	var req EvaluateRequest
	if err := core.DecodeJSON(w, r, &req, true); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	opts = req.apply(opts)

	out, err := h.eval.EvaluatePlot(r.Context(), plotID, opts)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := core.APIResponse{Data: out}
	if out.Message != "" && out.Status != evaluation.StatusEvaluated {
		resp.Meta = &core.ResponseMeta{Count: len(out.Risks), Warnings: []string{out.Message}}
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// HandleListRisks handles GET /v1/plots/{plotID}/risks?limit=.
func (h *PlotHandler) HandleListRisks(w http.ResponseWriter, r *http.Request) {
	plotID := chi.URLParam(r, "plotID")

	limit, err := queryInt(r, paramLimit, defaultRiskLimit, maxRiskLimit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if _, err := h.plots.GetPlot(r.Context(), plotID); err != nil {
		core.Error(w, r, err)
		return
	}

	events, err := h.risks.ListForPlot(r.Context(), plotID, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: events,
		Meta: &core.ResponseMeta{Count: len(events)},
	})
}

// HandleLatestRisks handles GET /v1/risks/latest?district=&mandal=. It
// returns the newest event per (plot, disease) in the area.
func (h *PlotHandler) HandleLatestRisks(w http.ResponseWriter, r *http.Request) {
	events, err := h.risks.LatestByPlot(r.Context(), queryFilter(r))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: events,
		Meta: &core.ResponseMeta{Count: len(events)},
	})
}
