package risk

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"plotrisk/internal/types"
)

// fallbackExplanation is used when no driver is strongly elevated.
const fallbackExplanation = "Weather and crop conditions are not strongly favourable"

// highDriverCutoff is the sub-score above which a driver is called out in
// the explanation.
const highDriverCutoff = 0.5

// Signal is one named sub-score of a model. Fn may return any value; it is
// clamped to [0,1] before weighting.
type Signal struct {
	Name   string
	Phrase string
	Fn     func(a Aggregate, m types.ManagementContext) float64
}

// Params are the tunable constants of a model.
type Params struct {
	Bias    float64            `json:"bias"`
	Weights map[string]float64 `json:"weights"`
}

func (p Params) clone() Params {
	w := make(map[string]float64, len(p.Weights))
	for k, v := range p.Weights {
		w[k] = v
	}
	return Params{Bias: p.Bias, Weights: w}
}

// StageTable maps growth stages to a multiplier. Stages not listed get
// Default. An unknown stage is always neutral.
type StageTable struct {
	Factors map[types.CropStage]float64
	Default float64
}

// Factor returns the multiplier for stage.
func (t *StageTable) Factor(stage types.CropStage) float64 {
	if t == nil || stage == "" || stage == types.StageUnknown {
		return 1
	}
	if f, ok := t.Factors[stage]; ok {
		return f
	}
	return t.Default
}

// Model scores one disease. Signals are evaluated in order, weighted,
// squashed through the logistic, then multiplied by the seasonal and stage
// factors.
type Model struct {
	Disease  types.Disease
	Signals  []Signal
	Params   Params
	Seasonal func(date time.Time) float64
	Stages   *StageTable
}

// Result is the outcome of scoring one disease over one window.
type Result struct {
	Disease       types.Disease      `json:"disease"`
	Risk01        float64            `json:"risk01"`
	Score         int                `json:"score"`
	Level         types.Severity     `json:"level"`
	Drivers       map[string]float64 `json:"drivers"`
	Contributions map[string]float64 `json:"contributions"`
	SeasonFactor  float64            `json:"season_factor"`
	StageFactor   float64            `json:"stage_factor"`
	Explanation   string             `json:"explanation"`
}

// DriversJSON returns the drivers in their persisted form.
func (r Result) DriversJSON() types.Drivers {
	d := make(types.Drivers, len(r.Drivers))
	for k, v := range r.Drivers {
		d[k] = v
	}
	return d
}

// Evaluate scores the model against an aggregate. The window supplies the
// growth stage, the management context and the seasonal anchor date.
func (m *Model) Evaluate(agg Aggregate, w *types.WeatherWindow) Result {
	var mgmt types.ManagementContext
	var stage types.CropStage
	var anchor time.Time
	if w != nil {
		mgmt = w.Management
		stage = w.Stage
		anchor = w.LastDate()
	}

	res := Result{
		Disease:       m.Disease,
		Drivers:       make(map[string]float64, len(m.Signals)),
		Contributions: make(map[string]float64, len(m.Signals)),
		SeasonFactor:  1,
		StageFactor:   1,
	}

	var raw float64
	for _, s := range m.Signals {
		sub := Clamp01(s.Fn(agg, mgmt))
		c := m.Params.Weights[s.Name] * sub
		res.Drivers[s.Name] = sub
		res.Contributions[s.Name] = c
		raw += c
	}

	p := Logistic(raw, m.Params.Bias)
	if m.Seasonal != nil && !anchor.IsZero() {
		res.SeasonFactor = m.Seasonal(anchor)
	}
	res.StageFactor = m.Stages.Factor(stage)
	p = Clamp01(p * res.SeasonFactor * res.StageFactor)

	cls := Classify(p)
	res.Risk01 = p
	res.Score = cls.Score
	res.Level = cls.Level
	res.Explanation = m.explain(res)
	return res
}

func (m *Model) explain(res Result) string {
	var phrases []string
	for _, s := range m.Signals {
		if res.Drivers[s.Name] > highDriverCutoff && s.Phrase != "" {
			phrases = append(phrases, s.Phrase)
		}
	}

	var b strings.Builder
	if len(phrases) == 0 {
		b.WriteString(fallbackExplanation)
	} else {
		text := strings.Join(phrases, "; ")
		b.WriteString(strings.ToUpper(text[:1]) + text[1:])
	}

	if top := topContributions(m.Signals, res.Contributions, 2); len(top) > 0 {
		b.WriteString(". Main drivers: ")
		b.WriteString(strings.Join(top, ", "))
	}
	return b.String()
}

// topContributions returns the n largest positive contributions, formatted
// as name=value. Ties keep signal order.
func topContributions(signals []Signal, contrib map[string]float64, n int) []string {
	names := make([]string, 0, len(signals))
	for _, s := range signals {
		if contrib[s.Name] > 0 {
			names = append(names, s.Name)
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		return contrib[names[i]] > contrib[names[j]]
	})
	if len(names) > n {
		names = names[:n]
	}
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = fmt.Sprintf("%s=%.2f", name, contrib[name])
	}
	return out
}
