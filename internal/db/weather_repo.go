package db

import (
	"context"
	"fmt"
	"time"

	"plotrisk/internal/types"
)

// WeatherRepository stores daily weather rows. Observed days live in
// weather_daily, forecast days in weather_forecast; both share one layout.
type WeatherRepository struct {
	db DBTX
}

// NewWeatherRepository creates a new WeatherRepository backed by the given DBTX.
func NewWeatherRepository(db DBTX) *WeatherRepository {
	return &WeatherRepository{db: db}
}

const weatherColumns = `date, temp_min, temp_max, temp_mean, rh_mean, rh_morning, rh_evening,
	rain_mm, rain_chance, wind_speed, solar_rad, sunshine_hours, leaf_wetness_hours,
	vpd, dew_point, et0, fog`

func weatherTable(wt types.WindowType) (string, error) {
	switch wt {
	case types.WindowPast:
		return "weather_daily", nil
	case types.WindowForecast:
		return "weather_forecast", nil
	default:
		return "", types.NewAppError(types.ErrCodeInternalUnexpected, fmt.Sprintf("unknown weather window type %q", wt), nil)
	}
}

// ReadDays returns the stored days in [from, to] ordered by date. Days with
// no row are absent; NULL readings come back as types.Missing.
func (r *WeatherRepository) ReadDays(ctx context.Context, plotID string, wt types.WindowType, from, to time.Time) ([]types.WeatherDay, error) {
	table, err := weatherTable(wt)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+weatherColumns+`
		 FROM `+table+`
		 WHERE plot_id = $1 AND date BETWEEN $2 AND $3
		 ORDER BY date`,
		plotID, from, to,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to read weather days", err)
	}
	defer rows.Close()

	var days []types.WeatherDay
	for rows.Next() {
		var (
			date time.Time
			v    [15]*float64
			fog  bool
		)
		if err := rows.Scan(&date,
			&v[0], &v[1], &v[2], &v[3], &v[4], &v[5], &v[6], &v[7],
			&v[8], &v[9], &v[10], &v[11], &v[12], &v[13], &v[14],
			&fog,
		); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan weather row", err)
		}
		days = append(days, types.WeatherDay{
			Date:             date,
			TempMin:          floatOrMissing(v[0]),
			TempMax:          floatOrMissing(v[1]),
			TempMean:         floatOrMissing(v[2]),
			RHMean:           floatOrMissing(v[3]),
			RHMorning:        floatOrMissing(v[4]),
			RHEvening:        floatOrMissing(v[5]),
			Rain:             floatOrMissing(v[6]),
			RainChance:       floatOrMissing(v[7]),
			Wind:             floatOrMissing(v[8]),
			SolarRad:         floatOrMissing(v[9]),
			SunshineHours:    floatOrMissing(v[10]),
			LeafWetnessHours: floatOrMissing(v[11]),
			VPD:              floatOrMissing(v[12]),
			DewPoint:         floatOrMissing(v[13]),
			ET0:              floatOrMissing(v[14]),
			Fog:              fog,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating weather rows", err)
	}
	return days, nil
}

// UpsertDays writes each day keyed on (plot_id, date). Re-ingesting a day
// replaces the previous values.
func (r *WeatherRepository) UpsertDays(ctx context.Context, plotID string, wt types.WindowType, days []types.WeatherDay) (int, error) {
	table, err := weatherTable(wt)
	if err != nil {
		return 0, err
	}

	query := `INSERT INTO ` + table + ` (plot_id, ` + weatherColumns + `, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
		 ON CONFLICT (plot_id, date) DO UPDATE SET
			temp_min = EXCLUDED.temp_min,
			temp_max = EXCLUDED.temp_max,
			temp_mean = EXCLUDED.temp_mean,
			rh_mean = EXCLUDED.rh_mean,
			rh_morning = EXCLUDED.rh_morning,
			rh_evening = EXCLUDED.rh_evening,
			rain_mm = EXCLUDED.rain_mm,
			rain_chance = EXCLUDED.rain_chance,
			wind_speed = EXCLUDED.wind_speed,
			solar_rad = EXCLUDED.solar_rad,
			sunshine_hours = EXCLUDED.sunshine_hours,
			leaf_wetness_hours = EXCLUDED.leaf_wetness_hours,
			vpd = EXCLUDED.vpd,
			dew_point = EXCLUDED.dew_point,
			et0 = EXCLUDED.et0,
			fog = EXCLUDED.fog,
			fetched_at = NOW()`

	written := 0
	for _, d := range days {
		_, err := r.db.Exec(ctx, query,
			plotID, d.Date,
			nullFloat(d.TempMin), nullFloat(d.TempMax), nullFloat(d.TempMean),
			nullFloat(d.RHMean), nullFloat(d.RHMorning), nullFloat(d.RHEvening),
			nullFloat(d.Rain), nullFloat(d.RainChance), nullFloat(d.Wind),
			nullFloat(d.SolarRad), nullFloat(d.SunshineHours), nullFloat(d.LeafWetnessHours),
			nullFloat(d.VPD), nullFloat(d.DewPoint), nullFloat(d.ET0),
			d.Fog,
		)
		if err != nil {
			return written, types.NewAppError(types.ErrCodeInternalDB,
				fmt.Sprintf("failed to upsert weather day %s", d.Date.Format(time.DateOnly)), err)
		}
		written++
	}
	return written, nil
}

// SavePayload stores a compressed provider response for audit and replay.
func (r *WeatherRepository) SavePayload(ctx context.Context, plotID, kind, encoding string, payload []byte) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO weather_payloads (plot_id, kind, encoding, payload)
		 VALUES ($1, $2, $3, $4)`,
		plotID, kind, encoding, payload,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to store weather payload", err)
	}
	return nil
}
