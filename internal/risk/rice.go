package risk

import (
	"math"

	"plotrisk/internal/types"
)

func riceModels() []*Model {
	return []*Model{
		{
			Disease: types.DiseasePaddyBlast,
			Signals: []Signal{
				{"tMinRisk", "favourable night temperature", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.TempMin, 25, 7) }},
				{"rhMScore", "high morning humidity", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHMorning, 75, 20) }},
				{"rhEScore", "high evening humidity", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHEvening, 60, 25) }},
				{"srScore", "low solar radiation (cloudy conditions)", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.SolarRad, 18, 6) }},
				{"lwScore", "long leaf wetness duration", func(a Aggregate, _ types.ManagementContext) float64 { return a.LeafWetness / 10 }},
				{"rainScore", "substantial rainfall", func(a Aggregate, _ types.ManagementContext) float64 { return a.Rain / 80 }},
				{"evpScore", "low evaporative demand", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.ET0, 5, 3) }},
			},
			Params: Params{Bias: 2.5, Weights: map[string]float64{
				"tMinRisk": 1.2, "rhMScore": 1.0, "rhEScore": 0.6, "srScore": 1.6,
				"lwScore": 0.7, "rainScore": 0.3, "evpScore": 0.4,
			}},
			Seasonal: blastSeason,
			Stages: &StageTable{Default: 1.0, Factors: map[types.CropStage]float64{
				types.StageTillering:   1.2,
				types.StagePanicleInit: 1.2,
				types.StageBooting:     1.2,
				types.StageHeading:     1.2,
				types.StageMaturity:    0.7,
			}},
		},
		{
			Disease: types.DiseasePaddyBLB,
			Signals: []Signal{
				{"tempScore", "warm temperatures", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.TempMean, 22, 10) }},
				{"rhScore", "high humidity", func(a Aggregate, _ types.ManagementContext) float64 {
					return above(math.Max(a.RHMorning, a.RHEvening), 75, 20)
				}},
				{"rainFreq", "frequent rainfall events", func(a Aggregate, _ types.ManagementContext) float64 { return float64(a.RainyDays) / 5 }},
				{"rainAmt", "heavy rainfall", func(a Aggregate, _ types.ManagementContext) float64 { return a.Rain / 100 }},
				{"windScore", "strong winds spreading inoculum", func(a Aggregate, _ types.ManagementContext) float64 { return a.Wind / 3 }},
				{"lowEvp", "low evaporative demand", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.ET0, 5, 3) }},
				{"highN", "high nitrogen level", highNitrogen},
			},
			Params: Params{Bias: 2.3, Weights: map[string]float64{
				"tempScore": 1.1, "rhScore": 1.1, "rainFreq": 0.7, "rainAmt": 0.4,
				"windScore": 0.4, "lowEvp": 0.4, "highN": 0.5,
			}},
			Stages: &StageTable{Default: 0.9, Factors: map[types.CropStage]float64{
				types.StageTillering:   1.2,
				types.StagePanicleInit: 1.2,
				types.StageBooting:     1.2,
				types.StageHeading:     1.2,
			}},
		},
		{
			Disease: types.DiseasePaddySheathBlight,
			Signals: []Signal{
				{"tempScore", "warm temperatures", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.TempMean, 24, 8) }},
				{"rhScore", "high humidity", func(a Aggregate, _ types.ManagementContext) float64 {
					return above(math.Max(a.RHMorning, a.RHEvening), 80, 15)
				}},
				{"lwScore", "long leaf wetness duration", func(a Aggregate, _ types.ManagementContext) float64 { return a.LeafWetness / 10 }},
				{"rainFreq", "frequent rainfall events", func(a Aggregate, _ types.ManagementContext) float64 { return float64(a.RainyDays) / 5 }},
				{"rainAmt", "heavy rainfall", func(a Aggregate, _ types.ManagementContext) float64 { return a.Rain / 80 }},
				{"highN", "high nitrogen level", highNitrogen},
				{"flooded", "continuous flooding and dense canopy", flooded},
			},
			Params: Params{Bias: 2.4, Weights: map[string]float64{
				"tempScore": 1.1, "rhScore": 1.2, "lwScore": 1.0, "rainFreq": 0.4,
				"rainAmt": 0.3, "highN": 0.6, "flooded": 0.5,
			}},
			Stages: &StageTable{Default: 0.8, Factors: map[types.CropStage]float64{
				types.StageTillering:   1.0,
				types.StagePanicleInit: 1.3,
				types.StageBooting:     1.3,
				types.StageHeading:     1.3,
			}},
		},
		{
			Disease: types.DiseasePaddyBrownSpot,
			Signals: []Signal{
				{"tempScore", "warm temperatures", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.TempMean, 20, 10) }},
				{"rhMScore", "high morning humidity", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHMorning, 60, 20) }},
				{"lowRain", "low rainfall and possible water stress", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.Rain, 40, 40) }},
				{"stressWater", "reported water stress in field", waterStress},
				{"lowN", "low nitrogen level", lowNitrogen},
			},
			Params: Params{Bias: 2.0, Weights: map[string]float64{
				"tempScore": 0.8, "rhMScore": 0.6, "lowRain": 0.8, "stressWater": 0.7, "lowN": 0.6,
			}},
			Stages: &StageTable{Default: 1.0, Factors: map[types.CropStage]float64{
				types.StageTillering:   1.1,
				types.StagePanicleInit: 1.1,
				types.StageBooting:     1.1,
			}},
		},
	}
}
