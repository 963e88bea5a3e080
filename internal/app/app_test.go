package app

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotrisk/internal/config"
	"plotrisk/internal/evaluation"
	"plotrisk/internal/observability"
	"plotrisk/internal/types"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Timezone:    "Asia/Kolkata",
		Weather:     config.WeatherConfig{Provider: "stub", PlotDelay: time.Millisecond},
		Risk: config.RiskConfig{
			DaysWindow:   5,
			PastWeight:   0.3,
			FutureWeight: 0.7,
			AutoIngest:   false,
		},
	}
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDefaults(t *testing.T) {
	opts := Defaults(testConfig().Risk)
	assert.Equal(t, evaluation.Options{
		Mode:         types.ModeForecast,
		DaysWindow:   5,
		AutoIngest:   false,
		PastWeight:   0.3,
		FutureWeight: 0.7,
	}, opts)
}

func TestBuild(t *testing.T) {
	s, err := Build(testConfig(), nil, clockwork.NewFakeClock(), observability.NewMetricsForTesting(), quiet())
	require.NoError(t, err)

	assert.Equal(t, "Asia/Kolkata", s.Location.String())
	assert.NotNil(t, s.Orchestrator)
	assert.NotNil(t, s.Runner)
	assert.NotNil(t, s.Jobs)
	assert.True(t, s.Engine.Supports(types.CropRice))
}

func TestBuild_NilMetrics(t *testing.T) {
	_, err := Build(testConfig(), nil, nil, nil, quiet())
	assert.NoError(t, err)
}

func TestBuild_Errors(t *testing.T) {
	cfg := testConfig()
	cfg.Risk.ModelOverrides = `{"PADDY_BLAST": {"bias": "high"}}`
	_, err := Build(cfg, nil, nil, nil, quiet())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Risk.PastWeight, cfg.Risk.FutureWeight = 0, 0
	_, err = Build(cfg, nil, nil, nil, quiet())
	assert.NoError(t, err, "zero weights only matter for PROACTIVE")

	cfg = testConfig()
	cfg.Timezone = "Mars/Olympus"
	_, err = Build(cfg, nil, nil, nil, quiet())
	assert.Error(t, err)
}
