// Package scheduler runs the recurring jobs of the risk service: forecast
// ingestion, the daily weather archive and the batch risk recompute.
//
// JobRunner is the multiplexer shared by every trigger. The cron schedule in
// the API process, the job HTTP endpoints and the cmd/risk-runner Lambda all
// hand it a JobPayload and it routes the payload to the right service. At
// most one run per task is active at a time.
package scheduler

import (
	"fmt"
	"time"

	"plotrisk/internal/evaluation"
	"plotrisk/internal/ingest"
	"plotrisk/internal/observability"
	"plotrisk/internal/types"
)

// TaskType identifies a job.
type TaskType string

const (
	TaskRiskRecompute TaskType = "risk_recompute"
	TaskWeatherUpdate TaskType = "weather_update"
	TaskDailyArchive  TaskType = "daily_archive"
)

// ParseTask validates a task name.
func ParseTask(s string) (TaskType, error) {
	switch t := TaskType(s); t {
	case TaskRiskRecompute, TaskWeatherUpdate, TaskDailyArchive:
		return t, nil
	}
	return "", types.NewAppError(types.ErrCodeValidationInvalidTask, fmt.Sprintf("unknown task %q", s), nil)
}

// JobPayload is the job request, as sent by EventBridge to the Lambda or
// built by the HTTP handlers and the cron schedule:
//
//	{"task":"risk_recompute","mode":"PROACTIVE","days_window":7}
//
// Zero values fall back to the configured defaults.
type JobPayload struct {
	Task       TaskType   `json:"task"`
	Mode       types.Mode `json:"mode,omitempty"`
	DaysWindow int        `json:"days_window,omitempty"`

	// Date selects the archive day as YYYY-MM-DD. Empty means yesterday.
	Date string `json:"date,omitempty"`

	District string `json:"district,omitempty"`
	Mandal   string `json:"mandal,omitempty"`
}

// Filter returns the plot filter of the payload.
func (p JobPayload) Filter() types.PlotFilter {
	return types.PlotFilter{District: p.District, Mandal: p.Mandal}
}

// JobResult is the outcome of a job. Batch is set for risk_recompute, Ingest
// for the weather tasks.
type JobResult struct {
	Task       TaskType                `json:"task"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Batch      *evaluation.BatchResult `json:"batch,omitempty"`
	Ingest     *ingest.Summary         `json:"ingest,omitempty"`
}

// Stats flattens the result for metric publishing.
func (r *JobResult) Stats() observability.RunStats {
	s := observability.RunStats{
		Task:     string(r.Task),
		Duration: r.FinishedAt.Sub(r.StartedAt),
	}
	switch {
	case r.Batch != nil:
		s.Mode = string(r.Batch.Mode)
		s.Total = r.Batch.TotalPlots
		s.Updated = r.Batch.UpdatedPlots
		s.Errors = r.Batch.Errors
	case r.Ingest != nil:
		s.Total = r.Ingest.TotalPlots
		s.Updated = r.Ingest.Succeeded
		s.Errors = r.Ingest.Failed
	}
	return s
}
