package evaluation

import (
	"fmt"
	"math"

	"plotrisk/internal/types"
)

// Window length bounds. The upper bound matches the longest daily forecast
// the weather provider serves.
const (
	DefaultDaysWindow = 7
	MinDaysWindow     = 1
	MaxDaysWindow     = 16
)

// Default PROACTIVE blend weights.
const (
	DefaultPastWeight   = 0.4
	DefaultFutureWeight = 0.6
)

// Options controls a single evaluation.
type Options struct {
	Mode         types.Mode `json:"mode"`
	DaysWindow   int        `json:"days_window"`
	AutoIngest   bool       `json:"auto_ingest"`
	PastWeight   float64    `json:"past_weight"`
	FutureWeight float64    `json:"future_weight"`
}

// DefaultOptions returns a forecast evaluation over the default horizon with
// auto-ingest enabled.
func DefaultOptions() Options {
	return Options{
		Mode:         types.ModeForecast,
		DaysWindow:   DefaultDaysWindow,
		AutoIngest:   true,
		PastWeight:   DefaultPastWeight,
		FutureWeight: DefaultFutureWeight,
	}
}

// Validate checks the options and returns a validation AppError on failure.
func (o Options) Validate() error {
	if _, err := types.ParseMode(string(o.Mode)); err != nil {
		return err
	}
	if o.DaysWindow < MinDaysWindow || o.DaysWindow > MaxDaysWindow {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidDaysWindow,
			fmt.Sprintf("days window must be between %d and %d", MinDaysWindow, MaxDaysWindow),
			nil, map[string]any{"days_window": o.DaysWindow})
	}
	if o.Mode == types.ModeProactive {
		pw, fw := o.PastWeight, o.FutureWeight
		if !validWeight(pw) || !validWeight(fw) || pw+fw == 0 {
			return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidWeights,
				"blend weights must be finite, non-negative and not both zero",
				nil, map[string]any{"past_weight": pw, "future_weight": fw})
		}
	}
	return nil
}

func validWeight(w float64) bool {
	return !math.IsNaN(w) && !math.IsInf(w, 0) && w >= 0
}
