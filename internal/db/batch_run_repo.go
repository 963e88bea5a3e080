package db

import (
	"context"

	"plotrisk/internal/types"
)

// BatchRunRepository stores the summary of each batch recompute.
type BatchRunRepository struct {
	db DBTX
}

// NewBatchRunRepository creates a new BatchRunRepository backed by the given DBTX.
func NewBatchRunRepository(db DBTX) *BatchRunRepository {
	return &BatchRunRepository{db: db}
}

// RecordBatchRun inserts one summary row. Re-recording the same run ID
// overwrites the counters.
func (r *BatchRunRepository) RecordBatchRun(ctx context.Context, run *types.BatchRun) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO batch_runs (id, run_date, mode, days_window, total_plots, updated_plots, errors, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			total_plots = EXCLUDED.total_plots,
			updated_plots = EXCLUDED.updated_plots,
			errors = EXCLUDED.errors,
			finished_at = EXCLUDED.finished_at`,
		run.ID, run.RunDate, run.Mode, run.DaysWindow,
		run.TotalPlots, run.UpdatedPlots, run.Errors,
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to record batch run", err)
	}
	return nil
}

// ListRecent returns the most recent batch summaries, newest first.
func (r *BatchRunRepository) ListRecent(ctx context.Context, limit int) ([]types.BatchRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT id, run_date, mode, days_window, total_plots, updated_plots, errors, started_at, finished_at
		 FROM batch_runs
		 ORDER BY started_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list batch runs", err)
	}
	defer rows.Close()

	runs := []types.BatchRun{}
	for rows.Next() {
		var br types.BatchRun
		if err := rows.Scan(&br.ID, &br.RunDate, &br.Mode, &br.DaysWindow,
			&br.TotalPlots, &br.UpdatedPlots, &br.Errors, &br.StartedAt, &br.FinishedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan batch run row", err)
		}
		runs = append(runs, br)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating batch run rows", err)
	}
	return runs, nil
}
