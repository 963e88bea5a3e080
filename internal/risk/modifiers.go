package risk

import (
	"time"

	"plotrisk/internal/types"
)

// blastSeason is the calendar multiplier for rice blast, keyed on the
// window's last date. Late rabi nurseries (mid November to January) are the
// worst period; the hot pre-monsoon weeks the mildest.
func blastSeason(date time.Time) float64 {
	md := int(date.Month())*100 + date.Day()
	switch {
	case md >= 1115 || md <= 131:
		return 1.4
	case (md >= 901 && md <= 1114) || (md >= 201 && md <= 215):
		return 1.2
	case md >= 415 && md <= 615:
		return 0.6
	default:
		return 1.0
	}
}

func highNitrogen(_ Aggregate, m types.ManagementContext) float64 {
	switch m.Nitrogen {
	case types.NitrogenHigh:
		return 1
	case types.NitrogenMedium:
		return 0.5
	}
	return 0
}

func lowNitrogen(_ Aggregate, m types.ManagementContext) float64 {
	switch m.Nitrogen {
	case types.NitrogenLow:
		return 1
	case types.NitrogenMedium:
		return 0.5
	}
	return 0
}

func flooded(_ Aggregate, m types.ManagementContext) float64 {
	switch m.Water {
	case types.WaterFlooded:
		return 1
	case types.WaterNormal:
		return 0.5
	}
	return 0
}

func waterStress(_ Aggregate, m types.ManagementContext) float64 {
	switch m.Water {
	case types.WaterStressed:
		return 1
	case types.WaterNormal:
		return 0.3
	}
	return 0
}
