package risk

import (
	"fmt"

	"plotrisk/internal/types"
)

// cropDiseases is the fixed per-crop disease order. Evaluation and
// persistence follow this order.
var cropDiseases = map[types.Crop][]types.Disease{
	types.CropRice: {
		types.DiseasePaddyBlast,
		types.DiseasePaddyBLB,
		types.DiseasePaddySheathBlight,
		types.DiseasePaddyBrownSpot,
	},
	types.CropChilli: {
		types.DiseaseChilliAnthracnose,
		types.DiseaseChilliPowderyMildew,
		types.DiseaseChilliThrips,
	},
	types.CropBlackgram: {
		types.DiseaseBlackgramPowderyMildew,
		types.DiseaseBlackgramLeafSpot,
		types.DiseaseBlackgramYMV,
	},
	types.CropMaize: {
		types.DiseaseMaizeFAW,
		types.DiseaseMaizeLeafBlight,
	},
}

// DefaultModels returns a fresh copy of every built-in model.
func DefaultModels() []*Model {
	var all []*Model
	all = append(all, riceModels()...)
	all = append(all, chilliModels()...)
	all = append(all, blackgramModels()...)
	all = append(all, maizeModels()...)
	return all
}

// Engine routes diseases to their models. It is immutable after NewEngine.
type Engine struct {
	models map[types.Disease]*Model
	crops  map[types.Crop][]types.Disease
}

// NewEngine builds the registry from the default models with the given
// parameter overrides applied.
func NewEngine(overrides Overrides) (*Engine, error) {
	return newEngine(DefaultModels(), cropDiseases, overrides)
}

func newEngine(models []*Model, crops map[types.Crop][]types.Disease, overrides Overrides) (*Engine, error) {
	e := &Engine{
		models: make(map[types.Disease]*Model, len(models)),
		crops:  make(map[types.Crop][]types.Disease, len(crops)),
	}
	for _, m := range models {
		if _, dup := e.models[m.Disease]; dup {
			return nil, configError(fmt.Errorf("duplicate model for %s", m.Disease))
		}
		cp := *m
		cp.Params = m.Params.clone()
		e.models[m.Disease] = &cp
	}

	if err := overrides.apply(e.models); err != nil {
		return nil, configError(err)
	}

	for _, d := range types.AllDiseases() {
		m, ok := e.models[d]
		if !ok {
			return nil, configError(fmt.Errorf("no model registered for %s", d))
		}
		if err := validateModel(m); err != nil {
			return nil, configError(err)
		}
	}
	for crop, diseases := range crops {
		for _, d := range diseases {
			if _, ok := e.models[d]; !ok {
				return nil, configError(fmt.Errorf("crop %s lists %s which has no model", crop, d))
			}
		}
		e.crops[crop] = append([]types.Disease(nil), diseases...)
	}
	return e, nil
}

func validateModel(m *Model) error {
	if len(m.Signals) == 0 {
		return fmt.Errorf("%s: model has no signals", m.Disease)
	}
	seen := make(map[string]bool, len(m.Signals))
	for _, s := range m.Signals {
		if s.Fn == nil {
			return fmt.Errorf("%s: signal %q has no function", m.Disease, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("%s: duplicate signal %q", m.Disease, s.Name)
		}
		seen[s.Name] = true
		if _, ok := m.Params.Weights[s.Name]; !ok {
			return fmt.Errorf("%s: no weight for signal %q", m.Disease, s.Name)
		}
	}
	for name := range m.Params.Weights {
		if !seen[name] {
			return fmt.Errorf("%s: weight for unknown signal %q", m.Disease, name)
		}
	}
	return nil
}

func configError(err error) error {
	return types.NewAppError(types.ErrCodeInternalModelConfig, "risk model registry is invalid: "+err.Error(), err)
}

// Supports reports whether any disease model applies to crop.
func (e *Engine) Supports(crop types.Crop) bool {
	return len(e.crops[crop]) > 0
}

// DiseasesFor returns the diseases evaluated for crop in their fixed order.
// Unknown crops yield an empty slice.
func (e *Engine) DiseasesFor(crop types.Crop) []types.Disease {
	return append([]types.Disease(nil), e.crops[crop]...)
}

// Params returns a copy of the active parameters for d.
func (e *Engine) Params(d types.Disease) (Params, bool) {
	m, ok := e.models[d]
	if !ok {
		return Params{}, false
	}
	return m.Params.clone(), true
}

// Score evaluates one disease against a window. An empty window scores 0
// with a "no weather data" explanation; an unregistered disease is an error.
func (e *Engine) Score(d types.Disease, w *types.WeatherWindow) (Result, error) {
	m, ok := e.models[d]
	if !ok {
		return Result{}, types.NewAppError(types.ErrCodeInternalModelConfig, fmt.Sprintf("no model registered for %s", d), nil)
	}
	if w.Empty() {
		return Result{
			Disease:      d,
			Level:        types.SeverityGreen,
			SeasonFactor: 1,
			StageFactor:  1,
			Explanation:  "no weather data",
		}, nil
	}
	return m.Evaluate(AggregateWindow(w), w), nil
}
