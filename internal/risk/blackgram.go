package risk

import (
	"plotrisk/internal/types"
)

func blackgramModels() []*Model {
	return []*Model{
		{
			Disease: types.DiseaseBlackgramPowderyMildew,
			Signals: []Signal{
				{"tempScore", "mild temperatures", func(a Aggregate, _ types.ManagementContext) float64 { return closeness(a.TempMean, 25, 7) }},
				{"rhMScore", "humid mornings", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHMorning, 60, 25) }},
				{"dryScore", "little rain to wash off spores", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.Rain, 20, 20) }},
			},
			Params: Params{Bias: 1.5, Weights: map[string]float64{
				"tempScore": 1.0, "rhMScore": 0.8, "dryScore": 0.5,
			}},
		},
		{
			Disease: types.DiseaseBlackgramLeafSpot,
			Signals: []Signal{
				{"rhMScore", "high morning humidity", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHMorning, 75, 15) }},
				{"tempScore", "temperature near the infection optimum", func(a Aggregate, _ types.ManagementContext) float64 { return closeness(a.TempMean, 27, 5) }},
				{"rainScore", "wet spell", func(a Aggregate, _ types.ManagementContext) float64 { return a.Rain / 30 }},
			},
			Params: Params{Bias: 1.8, Weights: map[string]float64{
				"rhMScore": 1.2, "tempScore": 0.8, "rainScore": 0.6,
			}},
		},
		{
			Disease: types.DiseaseBlackgramYMV,
			Signals: []Signal{
				{"tempScore", "temperature favourable for whitefly", func(a Aggregate, _ types.ManagementContext) float64 { return closeness(a.TempMean, 28, 4) }},
				{"rhMScore", "humid mornings", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHMorning, 65, 20) }},
				{"dryScore", "dry weather favouring whitefly build-up", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.Rain, 50, 50) }},
			},
			Params: Params{Bias: 2.2, Weights: map[string]float64{
				"tempScore": 1.5, "rhMScore": 0.8, "dryScore": 1.0,
			}},
		},
	}
}
