package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"plotrisk/internal/types"
)

// RiskRepository persists risk events.
type RiskRepository struct {
	db DBTX
}

// NewRiskRepository creates a new RiskRepository backed by the given DBTX.
func NewRiskRepository(db DBTX) *RiskRepository {
	return &RiskRepository{db: db}
}

const riskColumns = `r.id, r.plot_id, r.disease, r.date, r.severity, r.score, r.horizon_days,
	r.explanation, r.drivers, r.mode, r.source, r.created_by, r.created_at, r.updated_at`

func scanRiskEvent(row pgx.Row) (*types.RiskEvent, error) {
	var ev types.RiskEvent
	err := row.Scan(
		&ev.ID, &ev.PlotID, &ev.Disease, &ev.Date, &ev.Severity, &ev.Score, &ev.HorizonDays,
		&ev.Explanation, &ev.Drivers, &ev.Mode, &ev.Source, &ev.CreatedBy, &ev.CreatedAt, &ev.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// UpsertRiskEvent inserts the event or overwrites the row with the same
// (plot_id, disease, date, source). The statement is a single atomic upsert,
// so concurrent writers converge to the last write. The id and created_at of
// an existing row are preserved and written back into ev.
func (r *RiskRepository) UpsertRiskEvent(ctx context.Context, ev *types.RiskEvent) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO risk_events (id, plot_id, disease, date, severity, score, horizon_days,
			explanation, drivers, mode, source, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW())
		 ON CONFLICT (plot_id, disease, date, source) DO UPDATE SET
			severity = EXCLUDED.severity,
			score = EXCLUDED.score,
			horizon_days = EXCLUDED.horizon_days,
			explanation = EXCLUDED.explanation,
			drivers = EXCLUDED.drivers,
			mode = EXCLUDED.mode,
			created_by = EXCLUDED.created_by,
			updated_at = NOW()
		 RETURNING id, created_at, updated_at`,
		ev.ID, ev.PlotID, ev.Disease, ev.Date, ev.Severity, ev.Score, ev.HorizonDays,
		ev.Explanation, ev.Drivers, ev.Mode, ev.Source, ev.CreatedBy,
	).Scan(&ev.ID, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert risk event", err)
	}
	return nil
}

// ListForPlot returns a plot's risk events, newest date first and diseases
// alphabetically within a date. limit <= 0 means no limit.
func (r *RiskRepository) ListForPlot(ctx context.Context, plotID string, limit int) ([]types.RiskEvent, error) {
	query := `SELECT ` + riskColumns + `
		 FROM risk_events r
		 WHERE r.plot_id = $1
		 ORDER BY r.date DESC, r.disease ASC`
	args := []any{plotID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list risk events", err)
	}
	return collectRiskEvents(rows)
}

// LatestByPlot returns the most recent event per (plot, disease) for plots
// in the given area. Empty filter fields match all values.
func (r *RiskRepository) LatestByPlot(ctx context.Context, filter types.PlotFilter) ([]types.RiskEvent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (r.plot_id, r.disease) `+riskColumns+`
		 FROM risk_events r
		 JOIN plots p ON p.id = r.plot_id
		 WHERE ($1::text = '' OR p.district = $1)
		   AND ($2::text = '' OR p.mandal = $2)
		 ORDER BY r.plot_id, r.disease, r.date DESC, r.updated_at DESC`,
		filter.District, filter.Mandal,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list latest risk events", err)
	}
	return collectRiskEvents(rows)
}

func collectRiskEvents(rows pgx.Rows) ([]types.RiskEvent, error) {
	defer rows.Close()

	events := []types.RiskEvent{}
	for rows.Next() {
		ev, err := scanRiskEvent(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan risk event row", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating risk event rows", err)
	}
	return events, nil
}
