package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"plotrisk/internal/core"
	"plotrisk/internal/scheduler"
	"plotrisk/internal/types"
)

// TriggerHTTP tags runs started through the job endpoints.
const TriggerHTTP = "http"

// JobRunner is implemented by scheduler.JobRunner.
type JobRunner interface {
	Run(ctx context.Context, p scheduler.JobPayload) (*scheduler.JobResult, error)
	Start(ctx context.Context, p scheduler.JobPayload, done func(*scheduler.JobResult, error)) (scheduler.JobPayload, error)
}

// HistoryLister is implemented by db.BatchRunRepository.
type HistoryLister interface {
	ListRecent(ctx context.Context, limit int) ([]types.BatchRun, error)
}

// JobRequest is the optional JSON body of the job endpoints. Query
// parameters of the same name are applied first.
type JobRequest struct {
	Mode       string `json:"mode" validate:"omitempty,risk_mode"`
	DaysWindow int    `json:"days_window" validate:"omitempty,min=1,max=16"`
	Date       string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	District   string `json:"district" validate:"omitempty,max=100"`
	Mandal     string `json:"mandal" validate:"omitempty,max=100"`
}

// JobAccepted is returned when a recompute is started in the background.
type JobAccepted struct {
	Task       scheduler.TaskType `json:"task"`
	Status     string             `json:"status"`
	Mode       types.Mode         `json:"mode"`
	DaysWindow int                `json:"days_window"`
}

// JobHandler exposes the batch jobs to external cron callers.
type JobHandler struct {
	jobs      JobRunner
	history   HistoryLister
	guard     func(http.Handler) http.Handler
	validator *core.Validator
	logger    *slog.Logger
}

// NewJobHandler creates a JobHandler. guard wraps every job route, normally
// Server.RequireCronSecret; nil leaves the routes open.
func NewJobHandler(
	jobs JobRunner,
	history HistoryLister,
	guard func(http.Handler) http.Handler,
	val *core.Validator,
	logger *slog.Logger,
) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &JobHandler{
		jobs:      jobs,
		history:   history,
		guard:     guard,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the job endpoints under /v1/jobs.
func (h *JobHandler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		if h.guard != nil {
			r.Use(h.guard)
		}
		r.Post("/risk-recompute", h.HandleRiskRecompute)
		r.Post("/weather-update", h.HandleWeatherUpdate)
		r.Post("/daily-archive", h.HandleDailyArchive)
		r.Get("/history", h.HandleHistory)
	})
}

// HandleRiskRecompute handles POST /v1/jobs/risk-recompute.
//
// The batch runs in the background and the handler answers 202 at once.
// With ?wait=true it runs inline and returns the per-plot outcome list.
func (h *JobHandler) HandleRiskRecompute(w http.ResponseWriter, r *http.Request) {
	p, ok := h.payload(w, r, scheduler.TaskRiskRecompute)
	if !ok {
		return
	}
	ctx := types.WithTrigger(r.Context(), TriggerHTTP)

	if queryBool(r, paramWait) {
		h.runInline(w, r.WithContext(ctx), p)
		return
	}

	logger := types.LoggerFromContext(ctx, h.logger)
	accepted, err := h.jobs.Start(ctx, p, func(res *scheduler.JobResult, err error) {
		if err != nil {
			logger.Error("Background recompute failed", "error", err)
			return
		}
		logger.Info("Background recompute finished",
			"run_id", res.Batch.RunID,
			"updated", res.Batch.UpdatedPlots,
			"errors", res.Batch.Errors,
		)
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: JobAccepted{
		Task:       accepted.Task,
		Status:     "accepted",
		Mode:       accepted.Mode,
		DaysWindow: accepted.DaysWindow,
	}})
}

// HandleWeatherUpdate handles POST /v1/jobs/weather-update. Forecasts are
// refreshed for every matching plot before the response is written.
func (h *JobHandler) HandleWeatherUpdate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.payload(w, r, scheduler.TaskWeatherUpdate)
	if !ok {
		return
	}
	h.runInline(w, r.WithContext(types.WithTrigger(r.Context(), TriggerHTTP)), p)
}

// HandleDailyArchive handles POST /v1/jobs/daily-archive. ?date=YYYY-MM-DD
// selects the day; the default is yesterday.
func (h *JobHandler) HandleDailyArchive(w http.ResponseWriter, r *http.Request) {
	p, ok := h.payload(w, r, scheduler.TaskDailyArchive)
	if !ok {
		return
	}
	h.runInline(w, r.WithContext(types.WithTrigger(r.Context(), TriggerHTTP)), p)
}

// HandleHistory handles GET /v1/jobs/history?limit=.
func (h *JobHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, paramLimit, defaultHistory, maxHistory)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	runs, err := h.history.ListRecent(r.Context(), limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{
		Data: runs,
		Meta: &core.ResponseMeta{Count: len(runs)},
	})
}

func (h *JobHandler) runInline(w http.ResponseWriter, r *http.Request, p scheduler.JobPayload) {
	res, err := h.jobs.Run(r.Context(), p)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: res})
}

// payload builds the job payload from query parameters and the optional
// body. It writes the error response itself and reports false on failure.
func (h *JobHandler) payload(w http.ResponseWriter, r *http.Request, task scheduler.TaskType) (scheduler.JobPayload, bool) {
	p := scheduler.JobPayload{Task: task}

	mode, err := queryMode(r)
	if err != nil {
		core.Error(w, r, err)
		return p, false
	}
	p.Mode = mode
	if p.DaysWindow, err = queryDays(r); err != nil {
		core.Error(w, r, err)
		return p, false
	}
	p.Date = r.URL.Query().Get(paramDate)
	f := queryFilter(r)
	p.District, p.Mandal = f.District, f.Mandal

	var req JobRequest
	if err := core.DecodeJSON(w, r, &req, true); err != nil {
		core.Error(w, r, err)
		return p, false
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return p, false
	}
	if req.Mode != "" {
		p.Mode = types.Mode(req.Mode)
	}
	if req.DaysWindow != 0 {
		p.DaysWindow = req.DaysWindow
	}
	if req.Date != "" {
		p.Date = req.Date
	}
	if req.District != "" {
		p.District = strings.TrimSpace(req.District)
	}
	if req.Mandal != "" {
		p.Mandal = strings.TrimSpace(req.Mandal)
	}
	return p, true
}
