package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"plotrisk/internal/types"
)

// ParamOverride replaces parts of a model's default parameters. A nil Bias
// keeps the default; only the listed weights change.
type ParamOverride struct {
	Bias    *float64           `json:"bias,omitempty"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// Overrides maps diseases to parameter overrides.
type Overrides map[types.Disease]ParamOverride

// ParseOverrides decodes the JSON form of Overrides. An empty string yields
// no overrides. Names are validated when the engine is built.
func ParseOverrides(raw string) (Overrides, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var o Overrides
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&o); err != nil {
		return nil, fmt.Errorf("risk: invalid model overrides: %w", err)
	}
	return o, nil
}

// apply merges overrides into the models in place. Unknown diseases and
// signal names are rejected so a typo cannot silently leave defaults active.
func (o Overrides) apply(models map[types.Disease]*Model) error {
	diseases := make([]string, 0, len(o))
	for d := range o {
		diseases = append(diseases, string(d))
	}
	sort.Strings(diseases)

	for _, name := range diseases {
		d := types.Disease(name)
		ov := o[d]
		m, ok := models[d]
		if !ok {
			return fmt.Errorf("unknown disease %q", d)
		}
		if ov.Bias != nil {
			if !finite(*ov.Bias) {
				return fmt.Errorf("%s: bias must be finite", d)
			}
			m.Params.Bias = *ov.Bias
		}
		for sig, w := range ov.Weights {
			if _, ok := m.Params.Weights[sig]; !ok {
				return fmt.Errorf("%s: unknown signal %q", d, sig)
			}
			if !finite(w) {
				return fmt.Errorf("%s: weight for %q must be finite", d, sig)
			}
			m.Params.Weights[sig] = w
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
