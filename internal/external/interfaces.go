package external

import (
	"context"
	"fmt"
	"time"
)

// WeatherProvider fetches daily and hourly weather for a coordinate. The
// ingestion pipeline depends on this interface so the provider can be
// swapped for a stub in local mode and tests.
type WeatherProvider interface {
	FetchDaily(ctx context.Context, q Query) (*Forecast, error)
}

// Query selects a location and an inclusive date range. Dates are read as
// calendar days in Timezone.
type Query struct {
	Lat      float64
	Lng      float64
	Start    time.Time
	End      time.Time
	Timezone string
}

// CacheKey identifies the query for caching and request collapsing.
// Coordinates are rounded to about 10 m.
func (q Query) CacheKey() string {
	return fmt.Sprintf("%.4f,%.4f,%s,%s,%s",
		q.Lat, q.Lng,
		q.Start.Format(time.DateOnly), q.End.Format(time.DateOnly),
		q.Timezone,
	)
}

// Forecast is the decoded provider response plus the raw body.
type Forecast struct {
	Latitude  float64     `json:"latitude"`
	Longitude float64     `json:"longitude"`
	Timezone  string      `json:"timezone"`
	Daily     DailyBlock  `json:"daily"`
	Hourly    HourlyBlock `json:"hourly"`

	Raw []byte `json:"-"`
}

// DailyBlock holds parallel per-day arrays. A nil entry means the provider
// had no value for that day.
type DailyBlock struct {
	Time             []string   `json:"time"`
	TempMax          []*float64 `json:"temperature_2m_max"`
	TempMin          []*float64 `json:"temperature_2m_min"`
	TempMean         []*float64 `json:"temperature_2m_mean"`
	PrecipitationSum []*float64 `json:"precipitation_sum"`
	PrecipProbMax    []*float64 `json:"precipitation_probability_max"`
	WindSpeedMax     []*float64 `json:"wind_speed_10m_max"`
	ShortwaveRadSum  []*float64 `json:"shortwave_radiation_sum"`
	SunshineDuration []*float64 `json:"sunshine_duration"`
	ET0              []*float64 `json:"et0_fao_evapotranspiration"`
	WeatherCode      []*float64 `json:"weather_code"`
}

// HourlyBlock holds parallel per-hour arrays, local time.
type HourlyBlock struct {
	Time             []string   `json:"time"`
	RelativeHumidity []*float64 `json:"relative_humidity_2m"`
	DewPoint         []*float64 `json:"dew_point_2m"`
	VPD              []*float64 `json:"vapour_pressure_deficit"`
}

// At returns the i-th element of a series, or nil when out of range.
func At(series []*float64, i int) *float64 {
	if i < 0 || i >= len(series) {
		return nil
	}
	return series[i]
}
