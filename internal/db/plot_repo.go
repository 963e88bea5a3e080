package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"plotrisk/internal/types"
)

// PlotRepository reads plots and their latest field observation.
type PlotRepository struct {
	db DBTX
}

// NewPlotRepository creates a new PlotRepository backed by the given DBTX.
func NewPlotRepository(db DBTX) *PlotRepository {
	return &PlotRepository{db: db}
}

const plotColumns = `p.id, p.farmer_id, p.name, p.district, p.mandal, p.village,
	p.location_lat, p.location_lng, p.crop, p.variety, p.sowing_date,
	p.created_at, p.updated_at`

func scanPlot(row pgx.Row) (*types.Plot, error) {
	var (
		p        types.Plot
		lat, lng *float64
		sowing   *time.Time
	)
	err := row.Scan(
		&p.ID, &p.FarmerID, &p.Name, &p.District, &p.Mandal, &p.Village,
		&lat, &lng, &p.Crop, &p.Variety, &sowing,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat != nil && lng != nil {
		p.Location = &types.GeoPoint{Lat: *lat, Lng: *lng}
	}
	p.SowingDate = sowing
	return &p, nil
}

// GetPlot retrieves a plot by ID. Returns ErrCodeNotFoundPlot if absent.
func (r *PlotRepository) GetPlot(ctx context.Context, plotID string) (*types.Plot, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+plotColumns+`
		 FROM plots p
		 WHERE p.id = $1`,
		plotID,
	)
	p, err := scanPlot(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewPlotNotFound(plotID)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve plot", err)
	}
	return p, nil
}

// ListPlots returns every plot matching the filter, ordered by ID. Empty
// filter fields match all values.
func (r *PlotRepository) ListPlots(ctx context.Context, filter types.PlotFilter) ([]types.Plot, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+plotColumns+`
		 FROM plots p
		 WHERE ($1::text = '' OR p.district = $1)
		   AND ($2::text = '' OR p.mandal = $2)
		 ORDER BY p.id`,
		filter.District, filter.Mandal,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list plots", err)
	}
	defer rows.Close()

	var plots []types.Plot
	for rows.Next() {
		p, scanErr := scanPlot(rows)
		if scanErr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan plot row", scanErr)
		}
		plots = append(plots, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating plot rows", err)
	}
	return plots, nil
}

// LatestObservation returns the most recent field observation for a plot,
// or nil when the plot has never been scouted.
func (r *PlotRepository) LatestObservation(ctx context.Context, plotID string) (*types.FieldObservation, error) {
	var obs types.FieldObservation
	err := r.db.QueryRow(ctx,
		`SELECT id, plot_id, observed_at, crop_stage, nitrogen_level, water_status
		 FROM field_observations
		 WHERE plot_id = $1
		 ORDER BY observed_at DESC
		 LIMIT 1`,
		plotID,
	).Scan(&obs.ID, &obs.PlotID, &obs.ObservedAt, &obs.CropStage, &obs.Nitrogen, &obs.Water)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to retrieve latest field observation", err)
	}
	return &obs, nil
}

// GetPlotContext loads a plot together with its latest field observation.
func (r *PlotRepository) GetPlotContext(ctx context.Context, plotID string) (*types.PlotContext, error) {
	p, err := r.GetPlot(ctx, plotID)
	if err != nil {
		return nil, err
	}
	obs, err := r.LatestObservation(ctx, plotID)
	if err != nil {
		return nil, err
	}
	return &types.PlotContext{Plot: *p, LatestObservation: obs}, nil
}

// UpsertPlot inserts or updates a plot. Used by cmd/tools/seed.
func (r *PlotRepository) UpsertPlot(ctx context.Context, p *types.Plot) error {
	var lat, lng *float64
	if p.Location != nil {
		lat, lng = &p.Location.Lat, &p.Location.Lng
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO plots (id, farmer_id, name, district, mandal, village,
			location_lat, location_lng, crop, variety, sowing_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO UPDATE SET
			farmer_id = EXCLUDED.farmer_id,
			name = EXCLUDED.name,
			district = EXCLUDED.district,
			mandal = EXCLUDED.mandal,
			village = EXCLUDED.village,
			location_lat = EXCLUDED.location_lat,
			location_lng = EXCLUDED.location_lng,
			crop = EXCLUDED.crop,
			variety = EXCLUDED.variety,
			sowing_date = EXCLUDED.sowing_date,
			updated_at = NOW()`,
		p.ID, p.FarmerID, p.Name, p.District, p.Mandal, p.Village,
		lat, lng, p.Crop, p.Variety, p.SowingDate,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to upsert plot", err)
	}
	return nil
}

// InsertObservation records a field observation.
func (r *PlotRepository) InsertObservation(ctx context.Context, obs *types.FieldObservation) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO field_observations (id, plot_id, observed_at, crop_stage, nitrogen_level, water_status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		obs.ID, obs.PlotID, obs.ObservedAt, obs.CropStage, obs.Nitrogen, obs.Water,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert field observation", err)
	}
	return nil
}
