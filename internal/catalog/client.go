package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/abelbrown/soundscope/internal/otel"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 10 << 20

// StatusError is returned for a non-200 response that was not retried away.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("catalog: HTTP %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	Scheme    string        // "https"
	Host      string        // "freesound.org"
	Timeout   time.Duration // per HTTP request, 30s
	RateEvery time.Duration // minimum spacing between requests, 250ms
	Backoffs  []time.Duration
	Logger    *otel.Logger
	HTTP      *http.Client // overrides Timeout when set
}

// Client performs text searches against the Freesound API.
type Client struct {
	base     url.URL
	token    string
	client   *http.Client
	limiter  *rate.Limiter
	backoffs []time.Duration
	logger   *otel.Logger
}

// NewClient creates a Client authenticating with token.
func NewClient(token string, opts Options) *Client {
	if opts.Scheme == "" {
		opts.Scheme = "https"
	}
	if opts.Host == "" {
		opts.Host = "freesound.org"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RateEvery <= 0 {
		opts.RateEvery = 250 * time.Millisecond
	}
	if opts.Backoffs == nil {
		opts.Backoffs = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	}
	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	// Burst of 3 lets the three searches of one request leave together.
	return &Client{
		base:     url.URL{Scheme: opts.Scheme, Host: opts.Host, Path: TextSearchPath},
		token:    token,
		client:   hc,
		limiter:  rate.NewLimiter(rate.Every(opts.RateEvery), 3),
		backoffs: opts.Backoffs,
		logger:   opts.Logger,
	}
}

// Available reports whether an API token is configured.
func (c *Client) Available() bool {
	return c.token != ""
}

// URL returns the request URL for q.
func (c *Client) URL(q Query) string {
	u := c.base
	u.RawQuery = q.Values(c.token).Encode()
	return u.String()
}

// Search runs q and returns its results in response order.
// Retries up to len(backoffs) times on 429 and 5xx responses and on
// malformed bodies, honoring Retry-After on 429.
func (c *Client) Search(ctx context.Context, q Query) ([]Sound, error) {
	if !c.Available() {
		return nil, errors.New("catalog: no API token configured")
	}
	reqURL := c.URL(q)

	var lastErr error
	for attempt := 0; attempt <= len(c.backoffs); attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("catalog: rate limiter wait: %w", err)
		}

		start := time.Now()
		sounds, wait, err := c.do(ctx, reqURL)
		c.logger.Emit(otel.Event{
			Level:   otel.LevelDebug,
			Kind:    otel.KindCatalogRequest,
			Comp:    "catalog",
			Query:   q.Text,
			Msg:     q.Sort,
			Count:   len(sounds),
			Attempt: attempt + 1,
			Dur:     time.Since(start),
		})
		if err == nil {
			return sounds, nil
		}
		lastErr = err

		var se *StatusError
		retryable := errors.As(err, &se) && se.Retryable() || errors.Is(err, errMalformed)
		if !retryable || attempt == len(c.backoffs) {
			break
		}

		if wait <= 0 {
			wait = c.backoffs[attempt]
		}
		c.logger.Emit(otel.Event{
			Level:   otel.LevelWarn,
			Kind:    otel.KindCatalogRetry,
			Comp:    "catalog",
			Query:   q.Text,
			Attempt: attempt + 1,
			Err:     err.Error(),
			Dur:     wait,
		})
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("catalog: cancelled during retry: %w", ctx.Err())
		case <-time.After(wait):
		}
	}

	c.logger.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindCatalogError, Comp: "catalog", Query: q.Text, Err: lastErr.Error()})
	return nil, lastErr
}

var errMalformed = errors.New("catalog: malformed response")

// do performs one request. The returned duration is the server's Retry-After
// hint, zero when absent.
func (c *Client) do(ctx context.Context, reqURL string) ([]Sound, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "soundscope/0.3")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, 0, fmt.Errorf("catalog: request cancelled: %w", ctx.Err())
		}
		return nil, 0, fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("catalog: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, retryAfter(resp.Header.Get("Retry-After")), &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, 0, fmt.Errorf("%w: %v", errMalformed, err)
	}
	if sr.Results == nil {
		sr.Results = []Sound{}
	}
	return sr.Results, 0, nil
}

// retryAfter parses a Retry-After seconds value.
func retryAfter(h string) time.Duration {
	if h == "" {
		return 0
	}
	secs, err := strconv.Atoi(h)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
