package clients

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"nasa-explorer/internal/metrics"

	"github.com/go-resty/resty/v2"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Upstream failure classes. Every client error wraps exactly one of them.
var (
	ErrTransport   = errors.New("upstream transport failure")
	ErrStatus      = errors.New("upstream error status")
	ErrPayload     = errors.New("malformed upstream payload")
	ErrCircuitOpen = errors.New("upstream circuit open")
	ErrRateLimited = errors.New("upstream rate limit exceeded")
)

const maxRetryDelay = 30 * time.Second

// StatusError is returned for non-2xx upstream responses
type StatusError struct {
	Source string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Source, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Options configures an HTTPClient
type Options struct {
	Source  string
	Timeout time.Duration
	// Retries is the number of extra attempts after a retryable failure.
	Retries int
	// Rate is the sustained requests per second; zero disables limiting.
	Rate  float64
	Burst int
}

// HTTPClient is a wrapper around resty with breaker, limiter and metrics
type HTTPClient struct {
	source  string
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	limiter *rate.Limiter
}

// NewHTTPClient creates a new HTTP client for one upstream source
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetHeader("User-Agent", "nasa-explorer/1.0").
		SetHeader("Accept", "application/json")

	if opts.Retries > 0 {
		client.SetRetryCount(opts.Retries).
			SetRetryWaitTime(time.Second).
			SetRetryMaxWaitTime(maxRetryDelay).
			SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
				if resp == nil || resp.Request == nil {
					return 0, nil
				}
				return RetryDelay(resp.Request.Attempt - 1), nil
			}).
			AddRetryCondition(func(resp *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
			})
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.Rate > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.Rate), burst)
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    opts.Source,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: countsAsSuccess,
	})

	return &HTTPClient{
		source:  opts.Source,
		client:  client,
		breaker: breaker,
		limiter: limiter,
	}
}

// RetryDelay is the wait before retry n (zero based): 1s, 2s, 4s ... capped at 30s
func RetryDelay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	if n > 5 {
		return maxRetryDelay
	}
	d := time.Duration(math.Pow(2, float64(n))) * time.Second
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}

// countsAsSuccess keeps caller mistakes and cancellations from tripping the breaker.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrRateLimited) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code < 500 && se.Code != http.StatusTooManyRequests
	}
	return false
}

// Source returns the upstream name used in errors and metrics
func (c *HTTPClient) Source() string {
	return c.source
}

// Get performs a GET request and returns the response body
func (c *HTTPClient) Get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, endpoint, query)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%s: %w", c.source, ErrCircuitOpen)
	}

	metrics.UpstreamRequestsTotal.WithLabelValues(c.source, outcome(err)).Inc()
	metrics.UpstreamRequestDuration.WithLabelValues(c.source).Observe(time.Since(start).Seconds())
	return body, err
}

func (c *HTTPClient) do(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", c.source, ErrRateLimited, err)
	}

	req := c.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	resp, err := req.Get(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", c.source, ErrTransport, err)
	}

	if resp.StatusCode() >= 400 {
		return nil, &StatusError{Source: c.source, Code: resp.StatusCode(), Body: excerpt(resp.Body())}
	}
	return resp.Body(), nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrStatus):
		return "status"
	default:
		return "transport"
	}
}

func excerpt(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
