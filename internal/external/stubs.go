package external

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"time"

	"plotrisk/internal/types"
)

// StubWeatherProvider returns deterministic synthetic weather so the service
// can run locally without network access. Values follow a gentle monsoon
// pattern that varies by day of year and location.
type StubWeatherProvider struct {
	logger *slog.Logger
}

// NewStubWeatherProvider creates a new StubWeatherProvider.
func NewStubWeatherProvider(logger *slog.Logger) *StubWeatherProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &StubWeatherProvider{logger: logger}
}

// FetchDaily implements WeatherProvider.
func (s *StubWeatherProvider) FetchDaily(ctx context.Context, q Query) (*Forecast, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "stub: FetchDaily called",
		"lat", q.Lat,
		"lng", q.Lng,
		"start", q.Start.Format(time.DateOnly),
		"end", q.End.Format(time.DateOnly),
	)

	f := &Forecast{Latitude: q.Lat, Longitude: q.Lng, Timezone: q.Timezone}
	phase := (q.Lat + q.Lng) / 10
	for d := types.CalendarDate(q.Start, time.UTC); !d.After(types.CalendarDate(q.End, time.UTC)); d = d.AddDate(0, 0, 1) {
		x := float64(d.YearDay())/365*2*math.Pi + phase
		wet := (math.Sin(x) + 1) / 2

		f.Daily.Time = append(f.Daily.Time, d.Format(time.DateOnly))
		f.Daily.TempMax = append(f.Daily.TempMax, num(31+4*math.Cos(x)))
		f.Daily.TempMin = append(f.Daily.TempMin, num(23+2*math.Cos(x)))
		f.Daily.TempMean = append(f.Daily.TempMean, num(27+3*math.Cos(x)))
		f.Daily.PrecipitationSum = append(f.Daily.PrecipitationSum, num(math.Max(0, 20*wet-6)))
		f.Daily.PrecipProbMax = append(f.Daily.PrecipProbMax, num(100*wet))
		f.Daily.WindSpeedMax = append(f.Daily.WindSpeedMax, num(2+3*wet))
		f.Daily.ShortwaveRadSum = append(f.Daily.ShortwaveRadSum, num(22-8*wet))
		f.Daily.SunshineDuration = append(f.Daily.SunshineDuration, num((9-5*wet)*3600))
		f.Daily.ET0 = append(f.Daily.ET0, num(5.5-2*wet))
		f.Daily.WeatherCode = append(f.Daily.WeatherCode, num(math.Round(60*wet)))

		for h := 0; h < 24; h++ {
			diurnal := math.Cos(float64(h-5) / 24 * 2 * math.Pi)
			rh := math.Min(100, 70+20*wet+8*diurnal)
			f.Hourly.Time = append(f.Hourly.Time, d.Add(time.Duration(h)*time.Hour).Format("2006-01-02T15:04"))
			f.Hourly.RelativeHumidity = append(f.Hourly.RelativeHumidity, num(rh))
			f.Hourly.DewPoint = append(f.Hourly.DewPoint, num(20+3*wet))
			f.Hourly.VPD = append(f.Hourly.VPD, num(math.Max(0.1, 2.5*(1-rh/100))))
		}
	}
	raw, err := json.Marshal(f)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to encode stub weather", err)
	}
	f.Raw = raw
	return f, nil
}

func num(v float64) *float64 {
	r := math.Round(v*10) / 10
	return &r
}
