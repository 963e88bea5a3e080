package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"plotrisk/internal/types"
)

// DefaultOpenMeteoURL is the public forecast endpoint. It also serves recent
// past days when start_date is before today.
const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

var (
	openMeteoDaily = []string{
		"temperature_2m_max",
		"temperature_2m_min",
		"temperature_2m_mean",
		"precipitation_sum",
		"precipitation_probability_max",
		"wind_speed_10m_max",
		"shortwave_radiation_sum",
		"sunshine_duration",
		"et0_fao_evapotranspiration",
		"weather_code",
	}
	openMeteoHourly = []string{
		"relative_humidity_2m",
		"dew_point_2m",
		"vapour_pressure_deficit",
	}
)

// maxErrorBody bounds how much of an error response is read into messages.
const maxErrorBody = 2048

// CacheObserver is told about every cache lookup. Implemented by
// observability.Metrics.
type CacheObserver interface {
	CacheLookup(provider string, hit bool)
}

// OpenMeteoConfig configures an OpenMeteoClient.
type OpenMeteoConfig struct {
	BaseURL   string
	UserAgent string
	CacheTTL  time.Duration
	Retry     RetryPolicy
	Breaker   BreakerPolicy
	Logger    *slog.Logger
	Observer  CacheObserver // optional
}

// OpenMeteoClient implements WeatherProvider against the Open-Meteo API.
// Identical concurrent queries are collapsed into one request and results
// are cached for CacheTTL.
type OpenMeteoClient struct {
	base    *BaseClient
	baseURL string
	cache   *ResponseCache[*Forecast]
	ttl     time.Duration
	group   singleflight.Group
	obs     CacheObserver
	logger  *slog.Logger
}

// NewOpenMeteoClient creates a client. cache may be nil to disable caching.
func NewOpenMeteoClient(httpClient *http.Client, cache *ResponseCache[*Forecast], cfg OpenMeteoConfig, opts ...BaseClientOption) *OpenMeteoClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenMeteoURL
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.MinWait == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &OpenMeteoClient{
		base:    NewBaseClient(httpClient, "open-meteo", cfg.Retry, cfg.Breaker, cfg.UserAgent, append([]BaseClientOption{WithLogger(cfg.Logger)}, opts...)...),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cache:   cache,
		ttl:     cfg.CacheTTL,
		obs:     cfg.Observer,
		logger:  cfg.Logger,
	}
}

// FetchDaily returns daily and hourly series for q.
func (c *OpenMeteoClient) FetchDaily(ctx context.Context, q Query) (*Forecast, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	key := q.CacheKey()
	if c.cache != nil {
		f, ok := c.cache.Get(key)
		if c.obs != nil {
			c.obs.CacheLookup("open-meteo", ok)
		}
		if ok {
			c.logger.DebugContext(ctx, "Open-Meteo cache hit", "key", key)
			return f, nil
		}
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		f, err := c.fetch(ctx, q)
		if err != nil {
			return nil, err
		}
		if c.cache != nil {
			c.cache.Set(key, f, c.ttl)
		}
		return f, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "Open-Meteo request shared", "key", key)
	}
	return v.(*Forecast), nil
}

func validateQuery(q Query) error {
	if q.Lat < -90 || q.Lat > 90 || q.Lng < -180 || q.Lng > 180 {
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidLocation,
			"coordinates out of range", nil,
			map[string]any{"lat": q.Lat, "lng": q.Lng})
	}
	if q.Start.IsZero() || q.End.IsZero() || q.End.Before(q.Start) {
		return types.NewAppError(types.ErrCodeValidationInvalidDate, "weather query needs start <= end", nil)
	}
	return nil
}

func (c *OpenMeteoClient) buildURL(q Query) string {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(q.Lat, 'f', 4, 64))
	params.Set("longitude", strconv.FormatFloat(q.Lng, 'f', 4, 64))
	params.Set("start_date", q.Start.Format(time.DateOnly))
	params.Set("end_date", q.End.Format(time.DateOnly))
	params.Set("daily", strings.Join(openMeteoDaily, ","))
	params.Set("hourly", strings.Join(openMeteoHourly, ","))
	params.Set("wind_speed_unit", "ms")
	tz := q.Timezone
	if tz == "" {
		tz = "auto"
	}
	params.Set("timezone", tz)
	return c.baseURL + "?" + params.Encode()
}

func (c *OpenMeteoClient) fetch(ctx context.Context, q Query) (*Forecast, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(q), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}

	start := time.Now()
	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "weather provider unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamWeather,
			fmt.Sprintf("weather provider returned %d: %s", resp.StatusCode, providerReason(body)), nil,
			map[string]any{"status": resp.StatusCode})
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to read weather response", err)
	}

	var f Forecast
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "failed to decode weather response", err)
	}
	if len(f.Daily.Time) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamWeather, "weather response has no daily data", nil)
	}
	f.Raw = raw

	c.logger.InfoContext(ctx, "Fetched weather from Open-Meteo",
		"lat", q.Lat,
		"lng", q.Lng,
		"start", q.Start.Format(time.DateOnly),
		"end", q.End.Format(time.DateOnly),
		"days", len(f.Daily.Time),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &f, nil
}

// providerReason extracts the "reason" field of an Open-Meteo error body,
// falling back to the raw text.
func providerReason(body []byte) string {
	var e struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(body, &e) == nil && e.Reason != "" {
		return e.Reason
	}
	return strings.TrimSpace(string(body))
}
