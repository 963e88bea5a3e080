package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotrisk/internal/types"
)

func modelFor(t *testing.T, d types.Disease) *Model {
	t.Helper()
	for _, m := range DefaultModels() {
		if m.Disease == d {
			return m
		}
	}
	t.Fatalf("no default model for %s", d)
	return nil
}

// blastFavourable is cool, humid, cloudy, wet weather.
var blastFavourable = Aggregate{
	Days: 7, TempMin: 21, TempMean: 25, RHMorning: 95, RHEvening: 85,
	SolarRad: 12, LeafWetness: 10, Rain: 80, RainyDays: 5, ET0: 2,
}

// blastHostile is hot, dry, sunny weather.
var blastHostile = Aggregate{
	Days: 7, TempMin: 30, TempMean: 34, RHMorning: 50, RHEvening: 40,
	SolarRad: 25, LeafWetness: 0, Rain: 0, ET0: 7,
}

func windowAt(last time.Time, stage types.CropStage, mgmt types.ManagementContext) *types.WeatherWindow {
	start := last.AddDate(0, 0, -6)
	w := &types.WeatherWindow{Start: start, End: last, Stage: stage, Management: mgmt}
	for i := 0; i < 7; i++ {
		w.Days = append(w.Days, types.NewWeatherDay(start.AddDate(0, 0, i)))
	}
	return w
}

func TestModel_LogisticOfWeightedSum(t *testing.T) {
	m := modelFor(t, types.DiseasePaddyBlast)
	res := m.Evaluate(blastHostile, windowAt(time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC), types.StageUnknown, types.ManagementContext{}))

	for name, v := range res.Drivers {
		assert.Equal(t, 0.0, v, "driver %s", name)
	}
	assert.InDelta(t, Logistic(0, 2.5), res.Risk01, 1e-12)
	assert.Equal(t, 8, res.Score)
	assert.Equal(t, types.SeverityGreen, res.Level)
	assert.Equal(t, fallbackExplanation, res.Explanation)
}

func TestModel_FavourableBlastIsRed(t *testing.T) {
	m := modelFor(t, types.DiseasePaddyBlast)
	res := m.Evaluate(blastFavourable, windowAt(time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC), types.StageUnknown, types.ManagementContext{}))

	assert.InDelta(t, 4.0/7.0, res.Drivers["tMinRisk"], 1e-9)
	assert.Equal(t, 1.0, res.Drivers["srScore"])
	assert.InDelta(t, 1.6, res.Contributions["srScore"], 1e-12)
	assert.Greater(t, res.Risk01, 0.9)
	assert.Equal(t, types.SeverityRed, res.Level)
	assert.Contains(t, res.Explanation, "Favourable night temperature; high morning humidity")
	assert.Contains(t, res.Explanation, "low solar radiation (cloudy conditions)")
	assert.Contains(t, res.Explanation, "Main drivers: srScore=1.60, rhMScore=1.00")
}

func TestModel_ModifiersApplyAfterSquashing(t *testing.T) {
	m := modelFor(t, types.DiseasePaddyBlast)
	neutral := m.Evaluate(blastHostile, windowAt(time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC), types.StageUnknown, types.ManagementContext{}))
	lowSeason := m.Evaluate(blastHostile, windowAt(time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), types.StageUnknown, types.ManagementContext{}))
	peak := m.Evaluate(blastHostile, windowAt(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), types.StageBooting, types.ManagementContext{}))

	assert.Equal(t, 0.6, lowSeason.SeasonFactor)
	assert.InDelta(t, neutral.Risk01*0.6, lowSeason.Risk01, 1e-12)
	assert.Equal(t, 1.4, peak.SeasonFactor)
	assert.Equal(t, 1.2, peak.StageFactor)
	assert.InDelta(t, neutral.Risk01*1.4*1.2, peak.Risk01, 1e-12)
}

func TestModel_ModifiedRiskIsClamped(t *testing.T) {
	m := modelFor(t, types.DiseasePaddyBlast)
	res := m.Evaluate(blastFavourable, windowAt(time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), types.StageHeading, types.ManagementContext{}))
	assert.Equal(t, 1.0, res.Risk01)
	assert.Equal(t, 100, res.Score)
}

func TestBlastSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		day   int
		want  float64
	}{
		{time.November, 15, 1.4},
		{time.January, 31, 1.4},
		{time.November, 14, 1.2},
		{time.September, 1, 1.2},
		{time.February, 10, 1.2},
		{time.February, 16, 1.0},
		{time.April, 15, 0.6},
		{time.June, 15, 0.6},
		{time.June, 16, 1.0},
		{time.August, 31, 1.0},
	}
	for _, tt := range tests {
		got := blastSeason(time.Date(2025, tt.month, tt.day, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, tt.want, got, "%s %d", tt.month, tt.day)
	}
}

func TestStageTable(t *testing.T) {
	sheath := modelFor(t, types.DiseasePaddySheathBlight).Stages
	assert.Equal(t, 1.3, sheath.Factor(types.StageBooting))
	assert.Equal(t, 1.0, sheath.Factor(types.StageTillering))
	assert.Equal(t, 0.8, sheath.Factor(types.StageNursery))
	assert.Equal(t, 1.0, sheath.Factor(types.StageUnknown))

	var none *StageTable
	assert.Equal(t, 1.0, none.Factor(types.StageHeading))
}

func TestManagementSignals(t *testing.T) {
	high := types.ManagementContext{Nitrogen: types.NitrogenHigh, Water: types.WaterFlooded}
	unreported := types.ManagementContext{}

	sheath := modelFor(t, types.DiseasePaddySheathBlight)
	w := windowAt(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), types.StageUnknown, high)
	withMgmt := sheath.Evaluate(blastHostile, w)
	w.Management = unreported
	without := sheath.Evaluate(blastHostile, w)

	assert.Equal(t, 1.0, withMgmt.Drivers["highN"])
	assert.Equal(t, 1.0, withMgmt.Drivers["flooded"])
	assert.Equal(t, 0.0, without.Drivers["highN"])
	assert.Equal(t, 0.0, without.Drivers["flooded"])
	assert.Greater(t, withMgmt.Risk01, without.Risk01)
	assert.Contains(t, withMgmt.Explanation, "continuous flooding and dense canopy")

	brown := modelFor(t, types.DiseasePaddyBrownSpot)
	w.Management = types.ManagementContext{Nitrogen: types.NitrogenLow, Water: types.WaterStressed}
	res := brown.Evaluate(Aggregate{Rain: 0}, w)
	assert.Equal(t, 1.0, res.Drivers["lowN"])
	assert.Equal(t, 1.0, res.Drivers["stressWater"])
	assert.Equal(t, 1.0, res.Drivers["lowRain"])
	assert.Contains(t, res.Explanation, "reported water stress in field")
}

// Each family raises risk in its favourable weather and lowers it outside.
func TestModels_QualitativeShape(t *testing.T) {
	tests := []struct {
		disease  types.Disease
		favour   Aggregate
		unfavour Aggregate
	}{
		{
			disease:  types.DiseaseChilliAnthracnose,
			favour:   Aggregate{Rain: 30, RHMorning: 95, TempMean: 27, LeafWetness: 10},
			unfavour: Aggregate{Rain: 0, RHMorning: 50, TempMean: 36},
		},
		{
			disease:  types.DiseaseChilliPowderyMildew,
			favour:   Aggregate{TempMax: 28, TempMin: 12, RHMorning: 80, Rain: 0},
			unfavour: Aggregate{TempMax: 40, TempMin: 26, RHMorning: 98, Rain: 40},
		},
		{
			disease:  types.DiseaseChilliThrips,
			favour:   Aggregate{TempMax: 36, Rain: 0},
			unfavour: Aggregate{TempMax: 24, Rain: 30},
		},
		{
			disease:  types.DiseaseBlackgramPowderyMildew,
			favour:   Aggregate{TempMean: 25, RHMorning: 90, Rain: 0},
			unfavour: Aggregate{TempMean: 35, RHMorning: 50, Rain: 40},
		},
		{
			disease:  types.DiseaseBlackgramLeafSpot,
			favour:   Aggregate{RHMorning: 92, TempMean: 27, Rain: 40},
			unfavour: Aggregate{RHMorning: 60, TempMean: 20, Rain: 0},
		},
		{
			disease:  types.DiseaseBlackgramYMV,
			favour:   Aggregate{TempMean: 28, RHMorning: 85, Rain: 0},
			unfavour: Aggregate{TempMean: 20, RHMorning: 50, Rain: 80},
		},
		{
			disease:  types.DiseaseMaizeFAW,
			favour:   Aggregate{TempMean: 28, Rain: 0},
			unfavour: Aggregate{TempMean: 18, Rain: 60},
		},
		{
			disease:  types.DiseaseMaizeLeafBlight,
			favour:   Aggregate{TempMean: 18, RHMorning: 95, LeafWetness: 8},
			unfavour: Aggregate{TempMean: 32, RHMorning: 60, LeafWetness: 0},
		},
		{
			disease:  types.DiseasePaddyBLB,
			favour:   Aggregate{TempMean: 32, RHMorning: 95, RainyDays: 5, Rain: 100, Wind: 3, ET0: 2},
			unfavour: Aggregate{TempMean: 20, RHMorning: 60, ET0: 8},
		},
	}
	w := windowAt(time.Date(2025, time.August, 1, 0, 0, 0, 0, time.UTC), types.StageUnknown, types.ManagementContext{})
	for _, tt := range tests {
		t.Run(string(tt.disease), func(t *testing.T) {
			m := modelFor(t, tt.disease)
			fav := m.Evaluate(tt.favour, w)
			unf := m.Evaluate(tt.unfavour, w)
			require.Greater(t, fav.Risk01, 0.5)
			require.Less(t, unf.Risk01, 0.3)
			assert.Equal(t, types.SeverityGreen, unf.Level)
			assert.Contains(t, fav.Explanation, "Main drivers: ")
		})
	}
}
