package risk

import (
	"plotrisk/internal/types"
)

func maizeModels() []*Model {
	return []*Model{
		{
			Disease: types.DiseaseMaizeFAW,
			Signals: []Signal{
				{"tempScore", "temperature favourable for larval development", func(a Aggregate, _ types.ManagementContext) float64 { return closeness(a.TempMean, 28, 5) }},
				{"rainSuppression", "little rain to suppress larvae", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.Rain, 30, 30) }},
			},
			Params: Params{Bias: 1.8, Weights: map[string]float64{
				"tempScore": 1.5, "rainSuppression": 1.2,
			}},
		},
		{
			Disease: types.DiseaseMaizeLeafBlight,
			Signals: []Signal{
				{"coolScore", "moderate temperatures", func(a Aggregate, _ types.ManagementContext) float64 { return below(a.TempMean, 28, 10) }},
				{"rhMScore", "high morning humidity", func(a Aggregate, _ types.ManagementContext) float64 { return above(a.RHMorning, 80, 15) }},
				{"lwScore", "long leaf wetness duration", func(a Aggregate, _ types.ManagementContext) float64 { return a.LeafWetness / 8 }},
			},
			Params: Params{Bias: 2.0, Weights: map[string]float64{
				"coolScore": 0.8, "rhMScore": 1.0, "lwScore": 1.2,
			}},
		},
	}
}
