// Package config defines the process configuration for the plot risk service.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> Secret references (Lowest)
//
// Any missing required value or invalid format fails startup.
package config

import (
	"fmt"
	"time"

	"plotrisk/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for it.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"plotrisk"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	// Timezone defines "today" for every evaluation and ingestion.
	Timezone string `envconfig:"APP_TIMEZONE" default:"Asia/Kolkata" validate:"required,timezone"`

	Server        ServerConfig
	Database      DatabaseConfig
	Weather       WeatherConfig
	Risk          RiskConfig
	Jobs          JobsConfig
	AWS           AWSConfig
	Observability ObservabilityConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`

	// ApplySchema runs the embedded DDL at startup. Local bootstrap only.
	ApplySchema bool `envconfig:"DB_APPLY_SCHEMA" default:"false"`
}

// WeatherConfig configures the weather provider and ingestion pacing.
type WeatherConfig struct {
	Provider  string        `envconfig:"WEATHER_PROVIDER" default:"openmeteo" validate:"oneof=openmeteo stub"`
	BaseURL   string        `envconfig:"OPEN_METEO_BASE_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"required,url"`
	Timeout   time.Duration `envconfig:"WEATHER_TIMEOUT" default:"15s"`
	CacheTTL  time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"30m"`
	UserAgent string        `envconfig:"WEATHER_USER_AGENT" default:"PlotRisk/1.0"`

	MaxRetries      int           `envconfig:"WEATHER_MAX_RETRIES" default:"3" validate:"min=0,max=10"`
	BreakerFailures uint32        `envconfig:"WEATHER_BREAKER_FAILURES" default:"5" validate:"min=1"`
	BreakerOpenFor  time.Duration `envconfig:"WEATHER_BREAKER_OPEN_FOR" default:"30s"`

	// PlotDelay spaces out provider calls during batch ingestion.
	PlotDelay time.Duration `envconfig:"WEATHER_PLOT_DELAY" default:"1s"`
}

// RiskConfig holds evaluation defaults.
type RiskConfig struct {
	DaysWindow   int     `envconfig:"RISK_DAYS_WINDOW" default:"7" validate:"min=1,max=16"`
	PastWeight   float64 `envconfig:"RISK_PAST_WEIGHT" default:"0.4" validate:"gte=0"`
	FutureWeight float64 `envconfig:"RISK_FUTURE_WEIGHT" default:"0.6" validate:"gte=0"`
	AutoIngest   bool    `envconfig:"RISK_AUTO_INGEST" default:"true"`

	// ModelOverrides is a JSON object of per-disease bias and weight
	// overrides, e.g. {"PADDY_BLAST": {"bias": -4.5}}.
	ModelOverrides string `envconfig:"RISK_MODEL_OVERRIDES_JSON" validate:"omitempty,json"`
}

// JobsConfig configures the job endpoints and the in-process scheduler.
type JobsConfig struct {
	// CronSecret guards the job endpoints. Empty disables the check.
	CronSecret SecretString `envconfig:"CRON_SECRET"`

	SchedulerEnabled  bool   `envconfig:"SCHEDULER_ENABLED" default:"false"`
	ScheduleForecast  string `envconfig:"SCHEDULE_FORECAST" default:"0 * * * *"`
	ScheduleArchive   string `envconfig:"SCHEDULE_ARCHIVE" default:"0 1 * * *"`
	ScheduleRecompute string `envconfig:"SCHEDULE_RECOMPUTE" default:"30 6 * * *"`
	RecomputeMode     string `envconfig:"SCHEDULE_RECOMPUTE_MODE" default:"FORECAST" validate:"oneof=PAST FORECAST PROACTIVE"`
}

// AWSConfig holds AWS settings used by the Lambda runner.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"ap-south-1"`

	// LocalStack support. Empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds metrics settings.
type ObservabilityConfig struct {
	MetricNamespace   string `envconfig:"METRIC_NAMESPACE" default:"PlotRisk"`
	CloudWatchEnabled bool   `envconfig:"CLOUDWATCH_ENABLED" default:"false"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// IsLocal reports whether the process runs in local development mode.
func (c *Config) IsLocal() bool {
	return c.Environment == localEnv
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSecretResolution indicates a secret reference could not be resolved.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
