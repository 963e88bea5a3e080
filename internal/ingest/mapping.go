package ingest

import (
	"math"
	"time"

	"plotrisk/internal/external"
	"plotrisk/internal/risk"
	"plotrisk/internal/types"
)

// Hour ranges, local time, half-open.
const (
	morningFrom = 6
	morningTo   = 9
	eveningFrom = 15
	eveningTo   = 18
)

// fogCodes are the WMO weather codes for fog and depositing rime fog.
var fogCodes = map[int]bool{45: true, 48: true}

const (
	providerDateLayout = time.DateOnly
	providerHourLayout = "2006-01-02T15:04"
)

type hourlyDay struct {
	rh, morning, evening, dew, vpd series
}

type series struct {
	sum float64
	n   int
}

func (s *series) add(v *float64) {
	if v == nil || types.IsMissing(*v) {
		return
	}
	s.sum += *v
	s.n++
}

func (s series) mean() float64 {
	if s.n == 0 {
		return types.Missing
	}
	return s.sum / float64(s.n)
}

// MapDays converts a provider response into one WeatherDay per daily entry.
// Dates are provider-local calendar days placed at midnight in loc. Hourly
// humidity, dew point and VPD are averaged per day; the morning and evening
// humidity fall back to the daily mean when their hours are absent.
func MapDays(f *external.Forecast, loc *time.Location) []types.WeatherDay {
	if f == nil {
		return nil
	}
	if loc == nil {
		loc = time.UTC
	}

	hourly := groupHourly(f.Hourly)

	days := make([]types.WeatherDay, 0, len(f.Daily.Time))
	for i, ds := range f.Daily.Time {
		date, err := time.ParseInLocation(providerDateLayout, ds, loc)
		if err != nil {
			continue
		}
		d := types.NewWeatherDay(date)
		d.TempMax = value(external.At(f.Daily.TempMax, i))
		d.TempMin = value(external.At(f.Daily.TempMin, i))
		d.TempMean = value(external.At(f.Daily.TempMean, i))
		if types.IsMissing(d.TempMean) && !types.IsMissing(d.TempMin) && !types.IsMissing(d.TempMax) {
			d.TempMean = (d.TempMin + d.TempMax) / 2
		}
		d.Rain = value(external.At(f.Daily.PrecipitationSum, i))
		d.RainChance = value(external.At(f.Daily.PrecipProbMax, i))
		d.Wind = value(external.At(f.Daily.WindSpeedMax, i))
		d.SolarRad = value(external.At(f.Daily.ShortwaveRadSum, i))
		if sun := value(external.At(f.Daily.SunshineDuration, i)); !types.IsMissing(sun) {
			d.SunshineHours = sun / 3600
		}
		d.ET0 = value(external.At(f.Daily.ET0, i))
		if code := external.At(f.Daily.WeatherCode, i); code != nil {
			d.Fog = fogCodes[int(math.Round(*code))]
		}

		if h, ok := hourly[ds]; ok {
			d.RHMean = h.rh.mean()
			d.RHMorning = h.morning.mean()
			d.RHEvening = h.evening.mean()
			d.DewPoint = h.dew.mean()
			d.VPD = h.vpd.mean()
		}
		if types.IsMissing(d.RHMorning) {
			d.RHMorning = d.RHMean
		}
		if types.IsMissing(d.RHEvening) {
			d.RHEvening = d.RHMean
		}
		d.LeafWetnessHours = risk.EstimateLeafWetness(d.Rain, d.RHMean)

		days = append(days, d)
	}
	return days
}

func groupHourly(h external.HourlyBlock) map[string]*hourlyDay {
	out := make(map[string]*hourlyDay)
	for i, ts := range h.Time {
		t, err := time.Parse(providerHourLayout, ts)
		if err != nil {
			continue
		}
		key := t.Format(providerDateLayout)
		day, ok := out[key]
		if !ok {
			day = &hourlyDay{}
			out[key] = day
		}
		rh := external.At(h.RelativeHumidity, i)
		day.rh.add(rh)
		if hr := t.Hour(); hr >= morningFrom && hr < morningTo {
			day.morning.add(rh)
		} else if hr >= eveningFrom && hr < eveningTo {
			day.evening.add(rh)
		}
		day.dew.add(external.At(h.DewPoint, i))
		day.vpd.add(external.At(h.VPD, i))
	}
	return out
}

func value(p *float64) float64 {
	if p == nil {
		return types.Missing
	}
	return *p
}
