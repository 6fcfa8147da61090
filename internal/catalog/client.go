// Package catalog is a client for the TMDB v3 movie catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/cinewatch/cinewatch/internal/ratelimit"
)

// Default endpoints for the public TMDB service.
const (
	DefaultBaseURL      = "https://api.themoviedb.org/3"
	DefaultImageBaseURL = "https://image.tmdb.org/t/p"

	defaultTimeout        = 15 * time.Second
	defaultRPS            = 20.0
	defaultBurst          = 10
	defaultMaxRetries     = 3
	defaultRetryInterval  = 500 * time.Millisecond
	defaultTripFailures   = 5
	defaultBreakerTimeout = 30 * time.Second

	// maxBodySize bounds how much of a response is read.
	maxBodySize = 4 << 20
)

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	APIKey         string
	BaseURL        string
	ImageBaseURL   string
	PosterSize     string
	ListPosterSize string
	Timeout        time.Duration
	RPS            float64
	Burst          int
	MaxRetries     int

	// RetryInterval is the first backoff delay. Tests shrink it.
	RetryInterval time.Duration
	// TripAfter consecutive failures opens the circuit.
	TripAfter uint32
	// BreakerTimeout is how long the circuit stays open before probing.
	BreakerTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	if o.ImageBaseURL == "" {
		o.ImageBaseURL = DefaultImageBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	o.ImageBaseURL = strings.TrimRight(o.ImageBaseURL, "/")
	if o.PosterSize == "" {
		o.PosterSize = "w500"
	}
	if o.ListPosterSize == "" {
		o.ListPosterSize = "w200"
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.RPS <= 0 {
		o.RPS = defaultRPS
	}
	if o.Burst <= 0 {
		o.Burst = defaultBurst
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	if o.TripAfter == 0 {
		o.TripAfter = defaultTripFailures
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = defaultBreakerTimeout
	}
}

// Client is a rate-limited, retrying, circuit-broken TMDB client.
type Client struct {
	http    *http.Client
	limiter *ratelimit.KeyedRateLimiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	opts    Options
	logger  *slog.Logger
}

// New creates a catalog client.
func New(opts Options, logger *slog.Logger) *Client {
	opts.withDefaults()

	c := &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: ratelimit.New(opts.RPS, opts.Burst),
		opts:    opts,
		logger:  logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.TripAfter
		},
		// Client errors mean the catalog answered; only transport and server trouble counts against it.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, ErrBadRequest) ||
				errors.Is(err, ErrUnauthorized) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("catalog circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})

	return c
}

// Close releases resources held by the client.
func (c *Client) Close() {
	c.limiter.Stop()
}

// PosterURL builds a poster image URL for one of the configured sizes.
// An empty path yields "".
func (c *Client) PosterURL(path, size string) string {
	if path == "" {
		return ""
	}
	if size == "" {
		size = c.opts.PosterSize
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.opts.ImageBaseURL + "/" + size + path
}

// ListPosterURL is PosterURL at the list size.
func (c *Client) ListPosterURL(path string) string {
	return c.PosterURL(path, c.opts.ListPosterSize)
}

// get performs a GET against the API with pacing, retries and the circuit breaker.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.opts.APIKey)
	endpoint := c.opts.BaseURL + path + "?" + query.Encode()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.opts.RetryInterval
	exp.MaxInterval = 10 * c.opts.RetryInterval
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.opts.MaxRetries)), ctx)

	attempt := 0
	return backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		if err := c.limiter.Wait(ctx, c.opts.APIKey); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		body, err := c.breaker.Execute(func() ([]byte, error) {
			return c.do(ctx, endpoint)
		})
		switch {
		case err == nil:
			return body, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, backoff.Permanent(ErrCircuitOpen)
		case !retryable(err) || ctx.Err() != nil:
			return nil, backoff.Permanent(err)
		}

		c.logger.Debug("catalog request failed, retrying",
			"path", path,
			"attempt", attempt,
			"error", err)
		return nil, err
	}, policy)
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "CineWatch/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w: %w", errTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusBadRequest:
		return nil, ErrBadRequest
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrServer, resp.StatusCode)
	default:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// errTransport marks failures where no HTTP response was received.
var errTransport = errors.New("transport failure")

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrServer) ||
		errors.Is(err, errTransport)
}
