// Package external holds the clients for third-party weather providers.
// Outbound HTTP goes through BaseClient, which adds circuit breaking, retries
// with jittered backoff, request ID propagation and AppError mapping.
package external

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"

	"plotrisk/internal/types"
)

// RetryPolicy bounds the retries for one logical request.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy returns the policy used for weather providers.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		MinWait:    500 * time.Millisecond,
		MaxWait:    10 * time.Second,
	}
}

// BreakerPolicy decides when the provider circuit opens and for how long.
type BreakerPolicy struct {
	Failures uint32        // consecutive failed attempts that open the circuit
	OpenFor  time.Duration // wait before a half-open probe
}

// DefaultBreakerPolicy returns the breaker settings for weather providers.
func DefaultBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{Failures: 5, OpenFor: 30 * time.Second}
}

// BaseClient sends provider requests through a circuit breaker. Each attempt
// counts against the breaker separately, so a provider that keeps failing
// trips it even inside one retry loop.
type BaseClient struct {
	name      string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*http.Response]
	retry     RetryPolicy
	userAgent string
	sleep     func(ctx context.Context, d time.Duration) error
	logger    *slog.Logger
}

// BaseClientOption customizes a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc overrides the wait between retries. Tests use it to avoid
// real delays.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) BaseClientOption {
	return func(c *BaseClient) {
		c.sleep = fn
	}
}

// WithBreaker shares an existing breaker instead of building one from the
// BreakerPolicy.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) BaseClientOption {
	return func(c *BaseClient) {
		c.breaker = cb
	}
}

// WithLogger sets the logger for retries and breaker transitions.
func WithLogger(logger *slog.Logger) BaseClientOption {
	return func(c *BaseClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// NewBaseClient creates a BaseClient. name labels the breaker and the logs.
// A zero BreakerPolicy uses DefaultBreakerPolicy.
func NewBaseClient(
	httpClient *http.Client,
	name string,
	retry RetryPolicy,
	breaker BreakerPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &BaseClient{
		name:      name,
		client:    httpClient,
		retry:     retry,
		userAgent: userAgent,
		sleep:     sleepContext,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = newBreaker(name, breaker, c.logger)
	}
	return c
}

func newBreaker(name string, p BreakerPolicy, logger *slog.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	if p.Failures == 0 {
		p.Failures = DefaultBreakerPolicy().Failures
	}
	if p.OpenFor <= 0 {
		p.OpenFor = DefaultBreakerPolicy().OpenFor
	}
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     p.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= p.Failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Weather provider circuit changed state",
				"client", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})
}

// retryableStatus marks a 429 or 5xx response as a failed attempt.
type retryableStatus int

func (s retryableStatus) Error() string {
	return fmt.Sprintf("weather provider returned %d", int(s))
}

// Do sends req, retrying 429, 5xx and transport failures (honouring
// Retry-After). Other statuses come back unchanged and the caller closes the
// body. Exhausted retries, an open circuit or a cancelled context come back
// as a types.AppError with a nil response.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if reqID := types.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-ID", reqID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	attempts := 1 + max(c.retry.MaxRetries, 0)
	var (
		last    *http.Response
		lastErr error
		made    int
	)
	for made < attempts {
		if made > 0 {
			if err := rewind(req); err != nil {
				return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "cannot replay request body", err)
			}
		}
		made++

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, err := c.client.Do(req)
			if err != nil {
				return nil, err
			}
			if r.StatusCode == http.StatusTooManyRequests || r.StatusCode >= 500 {
				return r, retryableStatus(r.StatusCode)
			}
			return r, nil
		})
		if err == nil {
			return resp, nil
		}

		if last != nil {
			last.Body.Close()
		}
		last, lastErr = resp, err
		if rejected(err) || ctx.Err() != nil || made == attempts {
			break
		}

		wait := c.backoff(made-1, resp)
		c.logger.DebugContext(ctx, "Retrying weather request",
			"client", c.name,
			"attempt", made,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
		if err := c.sleep(ctx, wait); err != nil {
			lastErr = err
			break
		}
	}

	if last != nil {
		last.Body.Close()
	}
	return nil, c.classify(last, lastErr, made)
}

// rewind restores the body of a request before a retry.
func rewind(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody {
		return nil
	}
	if req.GetBody == nil {
		return errors.New("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return err
	}
	req.Body = body
	return nil
}

func rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

// backoff returns the wait before retry number n (0-based): Retry-After when
// the provider sends one, otherwise full jitter over an exponential ceiling.
// The result always lies in [MinWait, MaxWait].
func (c *BaseClient) backoff(n int, resp *http.Response) time.Duration {
	lo, hi := c.retry.MinWait, c.retry.MaxWait
	if d, ok := retryAfter(resp); ok {
		return min(max(d, lo), hi)
	}
	ceiling := hi
	if n < 30 {
		ceiling = min(lo<<n, hi)
	}
	if ceiling <= lo {
		return lo
	}
	return lo + rand.N(ceiling-lo)
}

// retryAfter parses a Retry-After header given as seconds or an HTTP date.
func retryAfter(resp *http.Response) (time.Duration, bool) {
	if resp == nil {
		return 0, false
	}
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t), true
	}
	return 0, false
}

// classify turns the final failed attempt into an AppError.
func (c *BaseClient) classify(resp *http.Response, err error, attempts int) *types.AppError {
	details := map[string]any{"client": c.name, "attempts": attempts}
	switch {
	case rejected(err):
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamRateLimited,
			"weather provider circuit is open", err, details)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamUnavailable,
			"weather request cancelled", err, details)
	case resp != nil && resp.StatusCode == http.StatusTooManyRequests:
		details["status"] = resp.StatusCode
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamRateLimited,
			"weather provider rate limit exceeded", err, details)
	case resp != nil:
		details["status"] = resp.StatusCode
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("weather provider returned %d after %d attempts", resp.StatusCode, attempts), err, details)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamUnavailable,
			"weather request failed", err, details)
	}
}
