package risk

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotrisk/internal/types"
)

var testStart = time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)

// uniformWindow builds an n-day window where every day is produced by fill.
func uniformWindow(n int, fill func(d *types.WeatherDay)) *types.WeatherWindow {
	w := &types.WeatherWindow{
		PlotID: "plot-1",
		Type:   types.WindowPast,
		Start:  testStart,
		End:    testStart.AddDate(0, 0, n-1),
		Stage:  types.StageUnknown,
	}
	for i := 0; i < n; i++ {
		d := types.NewWeatherDay(testStart.AddDate(0, 0, i))
		if fill != nil {
			fill(&d)
		}
		w.Days = append(w.Days, d)
	}
	return w
}

func TestAggregateWindow_EmptyAndNil(t *testing.T) {
	for name, w := range map[string]*types.WeatherWindow{
		"nil":   nil,
		"empty": {Type: types.WindowPast},
	} {
		t.Run(name, func(t *testing.T) {
			agg := AggregateWindow(w)
			assert.Equal(t, 0, agg.Days)
			assert.Equal(t, 0.0, agg.TempMean)
			assert.Equal(t, 0.0, agg.Rain)
			assert.Equal(t, 0, agg.RainyDays)
			assert.Equal(t, NeutralET0, agg.ET0)
		})
	}
}

func TestAggregateWindow_AllMissingReadings(t *testing.T) {
	agg := AggregateWindow(uniformWindow(7, nil))

	assert.Equal(t, 7, agg.Days)
	assert.Equal(t, 0.0, agg.TempMin)
	assert.Equal(t, 0.0, agg.RHMorning)
	assert.Equal(t, 0.0, agg.Rain)
	assert.Equal(t, 0.0, agg.LeafWetness)
	assert.Equal(t, NeutralET0, agg.ET0)
	for _, v := range []float64{agg.TempMax, agg.SolarRad, agg.Wind, agg.VPD, agg.DewPoint} {
		assert.False(t, math.IsNaN(v))
	}
}

func TestAggregateWindow_ExcludesNonFinite(t *testing.T) {
	w := uniformWindow(4, func(d *types.WeatherDay) {
		d.TempMin = 20
		d.Rain = 2
		d.ET0 = 4
	})
	w.Days[1].TempMin = math.Inf(1)
	w.Days[2].Rain = math.NaN()
	w.Days[3].ET0 = math.NaN()

	agg := AggregateWindow(w)
	assert.Equal(t, 20.0, agg.TempMin)
	assert.Equal(t, 6.0, agg.Rain)
	assert.Equal(t, 3, agg.RainyDays)
	assert.Equal(t, 4.0, agg.ET0)
}

func TestAggregateWindow_Fallbacks(t *testing.T) {
	w := uniformWindow(2, func(d *types.WeatherDay) {
		d.TempMin = 20
		d.TempMax = 30
		d.RHMean = 88
		d.Rain = 0
	})
	w.Days[0].TempMean = 27
	w.Days[1].RHMorning = 96

	agg := AggregateWindow(w)
	// Day 0 uses its own mean, day 1 falls back to (max+min)/2.
	assert.Equal(t, 26.0, agg.TempMean)
	// Morning humidity falls back to the daily mean on day 0.
	assert.Equal(t, 92.0, agg.RHMorning)
	assert.Equal(t, 88.0, agg.RHEvening)
	// No measured leaf wetness, no rain, RH between 85 and 90.
	assert.Equal(t, 3.0, agg.LeafWetness)
	assert.Equal(t, 0, agg.RainyDays)
}

func TestAggregateWindow_CountsAndSums(t *testing.T) {
	rains := []float64{0, 4, 0, 12.5, 0.2, 0, 0}
	w := uniformWindow(len(rains), nil)
	for i := range w.Days {
		w.Days[i].Rain = rains[i]
		w.Days[i].LeafWetnessHours = float64(i)
	}
	w.Days[2].Fog = true

	agg := AggregateWindow(w)
	assert.InDelta(t, 16.7, agg.Rain, 1e-9)
	assert.Equal(t, 3, agg.RainyDays)
	assert.Equal(t, 1, agg.FogDays)
	assert.Equal(t, 3.0, agg.LeafWetness)
}

func TestEstimateLeafWetness(t *testing.T) {
	tests := []struct {
		rain, rh, want float64
	}{
		{0.1, 40, 8},
		{0, 92, 6},
		{0, 90, 6},
		{0, 86, 3},
		{0, 70, 0},
		{math.NaN(), 95, 6},
		{0, math.NaN(), 0},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, EstimateLeafWetness(tt.rain, tt.rh), "rain=%v rh=%v", tt.rain, tt.rh)
	}
}
