package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"plotrisk/internal/app"
	"plotrisk/internal/config"
	"plotrisk/internal/observability"
	"plotrisk/internal/types"
)

type fakePool struct {
	pingErr error
	closed  bool
}

func (p *fakePool) Ping(context.Context) error { return p.pingErr }
func (p *fakePool) Close()                     { p.closed = true }

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Timezone:    "Asia/Kolkata",
		Weather:     config.WeatherConfig{Provider: "stub"},
		Risk:        config.RiskConfig{DaysWindow: 7, PastWeight: 0.4, FutureWeight: 0.6, AutoIngest: true},
		Jobs: config.JobsConfig{
			CronSecret:        types.SecretString("s3cret"),
			ScheduleForecast:  "0 * * * *",
			ScheduleArchive:   "0 1 * * *",
			ScheduleRecompute: "30 6 * * *",
			RecomputeMode:     "FORECAST",
		},
	}
}

func TestNewServer_Routes(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	svc, err := app.Build(cfg, nil, nil, nil, logger)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	pool := &fakePool{}
	srv, err := newServer(cfg, svc, observability.NewMetricsForTesting(), pool, logger)
	if err != nil {
		t.Fatalf("newServer: %v", err)
	}

	tests := []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/v1/jobs/weather-update", http.StatusUnauthorized},
		{http.MethodGet, "/v1/jobs/history", http.StatusUnauthorized},
		{http.MethodGet, "/v1/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.target, rec.Code, tt.want)
		}
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !pool.closed {
		t.Error("pool not closed on shutdown")
	}
}

func TestNewScheduler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := testConfig()
	svc, err := app.Build(cfg, nil, nil, nil, logger)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	sched, err := newScheduler(cfg, svc, logger)
	if err != nil {
		t.Fatalf("newScheduler: %v", err)
	}
	if got := len(sched.Entries()); got != 3 {
		t.Errorf("entries = %d, want 3", got)
	}

	cfg.Jobs.ScheduleArchive = "every day"
	if _, err := newScheduler(cfg, svc, logger); err == nil {
		t.Error("want error for invalid spec")
	}
}
