package external

import (
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"plotrisk/internal/config"
)

// ClientRegistry holds the external clients the service talks to.
type ClientRegistry struct {
	Weather WeatherProvider
}

// NewClientRegistry builds the clients from configuration. In test mode or
// with WEATHER_PROVIDER=stub the weather provider is the synthetic stub;
// otherwise it is Open-Meteo behind a cache owned by the registry. obs may
// be nil.
func NewClientRegistry(cfg *config.Config, clock clockwork.Clock, obs CacheObserver, logger *slog.Logger) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.IsTestMode || cfg.Weather.Provider == "stub" {
		logger.Info("Initializing weather provider in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
		return &ClientRegistry{Weather: NewStubWeatherProvider(logger.With("mode", "stub"))}
	}

	logger.Info("Initializing Open-Meteo weather provider",
		"base_url", cfg.Weather.BaseURL,
		"cache_ttl", cfg.Weather.CacheTTL.String(),
	)
	cache := NewResponseCache[*Forecast](clock)
	retry := DefaultRetryPolicy()
	retry.MaxRetries = cfg.Weather.MaxRetries
	client := NewOpenMeteoClient(
		&http.Client{Timeout: cfg.Weather.Timeout},
		cache,
		OpenMeteoConfig{
			BaseURL:   cfg.Weather.BaseURL,
			UserAgent: cfg.Weather.UserAgent,
			CacheTTL:  cfg.Weather.CacheTTL,
			Retry:     retry,
			Breaker: BreakerPolicy{
				Failures: cfg.Weather.BreakerFailures,
				OpenFor:  cfg.Weather.BreakerOpenFor,
			},
			Logger:   logger.With("client", "open-meteo"),
			Observer:  obs,
		},
	)
	return &ClientRegistry{Weather: client}
}
