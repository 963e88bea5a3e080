package risk

import (
	"plotrisk/internal/types"
)

func chilliModels() []*Model {
	return []*Model{
		{
			Disease: types.DiseaseChilliAnthracnose,
			Signals: []Signal{
				{"rainScore", "wet spell", func(a Aggregate, _ types.ManagementContext) float64 { return a.Rain / 20 }},
				{"rhMScore", "high morning humidity", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHMorning, 75, 15) }},
				{"tempScore", "temperature near the infection optimum", func(a Aggregate, _ types.ManagementContext) float64 { return closeness(a.TempMean, 27, 5) }},
				{"lwScore", "long leaf wetness duration", func(a Aggregate, _ types.ManagementContext) float64 { return a.LeafWetness / 10 }},
			},
			Params: Params{Bias: 2.0, Weights: map[string]float64{
				"rainScore": 0.8, "rhMScore": 1.0, "tempScore": 0.7, "lwScore": 0.5,
			}},
		},
		{
			Disease: types.DiseaseChilliPowderyMildew,
			Signals: []Signal{
				{"tMaxScore", "warm days", func(a Aggregate, _ types.ManagementContext) float64 { return closeness(a.TempMax, 28, 8) }},
				{"tMinScore", "cool nights", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.TempMin, 20, 10) }},
				{"rhBand", "moderate humidity", func(a Aggregate, _ types.ManagementContext) float64 {
					return above(a.RHMorning, 60, 20) * below(a.RHMorning, 95, 10)
				}},
				{"dryScore", "dry conditions", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.Rain, 10, 10) }},
			},
			Params: Params{Bias: 2.0, Weights: map[string]float64{
				"tMaxScore": 0.8, "tMinScore": 0.6, "rhBand": 1.0, "dryScore": 0.7,
			}},
		},
		{
			Disease: types.DiseaseChilliThrips,
			Signals: []Signal{
				{"heatScore", "hot days", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.TempMax, 25, 10) }},
				{"dryScore", "dry spell", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.Rain, 5, 5) }},
			},
			Params: Params{Bias: 1.8, Weights: map[string]float64{
				"heatScore": 1.2, "dryScore": 1.5,
			}},
		},
	}
}
