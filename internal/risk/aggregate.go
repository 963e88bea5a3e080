// Package risk holds the agronomic scoring engine: window aggregation, the
// per-disease scoring models, severity classification and the crop to
// disease dispatch registry. Everything in this package is pure and safe for
// concurrent use once an Engine has been built.
package risk

import (
	"math"

	"plotrisk/internal/types"
)

// NeutralET0 is the evapotranspiration average (mm/day) assumed when a window
// carries no ET0 readings at all. It keeps stress-based signals centred.
const NeutralET0 = 5.0

// Leaf wetness estimate used when a day has no measured duration.
const (
	leafWetRainHours    = 8.0
	leafWetRH90Hours    = 6.0
	leafWetRH85Hours    = 3.0
	leafWetHighRHCutoff = 90.0
	leafWetMidRHCutoff  = 85.0
)

// Aggregate is the set of scalar statistics every model reads. Averages are
// over finite readings only; an average with no readings is 0 except ET0.
type Aggregate struct {
	Days int

	TempMin  float64
	TempMax  float64
	TempMean float64

	RHMorning float64
	RHEvening float64

	SolarRad      float64
	SunshineHours float64

	Rain       float64 // summed
	RainyDays  int
	RainChance float64

	Wind        float64
	LeafWetness float64
	ET0         float64
	VPD         float64
	DewPoint    float64
	FogDays     int
}

// EstimateLeafWetness approximates daily leaf-wetness hours from rainfall and
// mean relative humidity. Missing inputs count as dry.
func EstimateLeafWetness(rain, rhMean float64) float64 {
	switch {
	case !types.IsMissing(rain) && rain > 0:
		return leafWetRainHours
	case types.IsMissing(rhMean):
		return 0
	case rhMean >= leafWetHighRHCutoff:
		return leafWetRH90Hours
	case rhMean >= leafWetMidRHCutoff:
		return leafWetRH85Hours
	default:
		return 0
	}
}

// AggregateWindow reduces a window to its statistics. It never fails: an
// empty or nil window yields zeros with a neutral ET0.
func AggregateWindow(w *types.WeatherWindow) Aggregate {
	var (
		tMin, tMax, tMean, rhM, rhE mean
		sr, sun, chance, wind, lw   mean
		et0, vpd, dew               mean
		agg                         Aggregate
	)
	if w == nil {
		agg.ET0 = NeutralET0
		return agg
	}

	for _, d := range w.Days {
		agg.Days++

		tMin.add(d.TempMin)
		tMax.add(d.TempMax)
		if !types.IsMissing(d.TempMean) {
			tMean.add(d.TempMean)
		} else if !types.IsMissing(d.TempMin) && !types.IsMissing(d.TempMax) {
			tMean.add((d.TempMin + d.TempMax) / 2)
		}

		rhM.add(firstFinite(d.RHMorning, d.RHMean))
		rhE.add(firstFinite(d.RHEvening, d.RHMean))

		sr.add(d.SolarRad)
		sun.add(d.SunshineHours)
		chance.add(d.RainChance)
		wind.add(d.Wind)
		et0.add(d.ET0)
		vpd.add(d.VPD)
		dew.add(d.DewPoint)

		if !types.IsMissing(d.Rain) {
			agg.Rain += d.Rain
			if d.Rain > 0 {
				agg.RainyDays++
			}
		}
		if types.IsMissing(d.LeafWetnessHours) {
			lw.add(EstimateLeafWetness(d.Rain, d.RHMean))
		} else {
			lw.add(d.LeafWetnessHours)
		}
		if d.Fog {
			agg.FogDays++
		}
	}

	agg.TempMin = tMin.value()
	agg.TempMax = tMax.value()
	agg.TempMean = tMean.value()
	agg.RHMorning = rhM.value()
	agg.RHEvening = rhE.value()
	agg.SolarRad = sr.value()
	agg.SunshineHours = sun.value()
	agg.RainChance = chance.value()
	agg.Wind = wind.value()
	agg.LeafWetness = lw.value()
	agg.VPD = vpd.value()
	agg.DewPoint = dew.value()
	agg.ET0 = NeutralET0
	if et0.n > 0 {
		agg.ET0 = et0.value()
	}
	return agg
}

// mean accumulates finite values.
type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	if types.IsMissing(v) {
		return
	}
	m.sum += v
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

func firstFinite(vals ...float64) float64 {
	for _, v := range vals {
		if !types.IsMissing(v) {
			return v
		}
	}
	return math.NaN()
}
