package risk

import (
	"math"

	"plotrisk/internal/types"
)

// Severity thresholds on the 0..100 score, inclusive lower bounds.
const (
	ThresholdRed    = 75
	ThresholdOrange = 50
	ThresholdYellow = 30
)

// Classification is a risk probability expressed as a score and a level.
type Classification struct {
	Score int            `json:"score"`
	Level types.Severity `json:"level"`
}

// Classify converts a probability into a 0..100 score and severity level.
// Values outside [0,1] are clamped; NaN classifies as 0.
func Classify(risk01 float64) Classification {
	return ClassifyScore(int(math.Round(Clamp01(risk01) * 100)))
}

// ClassifyScore derives the severity level for an already rounded score.
func ClassifyScore(score int) Classification {
	score = max(0, min(100, score))
	level := types.SeverityGreen
	switch {
	case score >= ThresholdRed:
		level = types.SeverityRed
	case score >= ThresholdOrange:
		level = types.SeverityOrange
	case score >= ThresholdYellow:
		level = types.SeverityYellow
	}
	return Classification{Score: score, Level: level}
}

// Clamp01 limits v to [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return v
}

// Logistic squashes a weighted sum into a probability, shifted by bias.
func Logistic(raw, bias float64) float64 {
	return 1 / (1 + math.Exp(-(raw - bias)))
}

// closeness scores how near v is to optimum, falling linearly to 0 at
// optimum±spread.
func closeness(v, optimum, spread float64) float64 {
	return Clamp01(1 - math.Abs(v-optimum)/spread)
}

// above scores v rising linearly from floor to floor+span.
func above(v, floor, span float64) float64 {
	return Clamp01((v - floor) / span)
}

// below scores v rising linearly as it drops from ceiling to ceiling-span.
func below(v, ceiling, span float64) float64 {
	return Clamp01((ceiling - v) / span)
}
