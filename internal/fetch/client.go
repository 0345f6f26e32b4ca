package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	UserAgent = "Mozilla/5.0 (compatible; sharevault/1.0; +https://github.com/sharevault)"

	defaultTimeout  = 10 * time.Second
	defaultMaxBody  = 2 << 20
	defaultMaxRetry = 15 * time.Second
)

// ErrStatus is wrapped by every non-2xx response error.
var ErrStatus = errors.New("unexpected status")

type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d from %s", ErrStatus, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	HTTPClient *http.Client
	// RatePerSecond caps outbound requests; 0 disables the limiter.
	RatePerSecond float64
	// Timeout bounds a single call including retries.
	Timeout time.Duration
	// MaxElapsed bounds the retry loop; negative disables retries.
	MaxElapsed time.Duration
	UserAgent  string
}

// Client is the outbound HTTP client shared by the enrichers.
type Client struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Timeout    time.Duration
	MaxElapsed time.Duration
	UserAgent  string
}

func New(opts Options) *Client {
	c := &Client{
		HTTPClient: opts.HTTPClient,
		Timeout:    opts.Timeout,
		MaxElapsed: opts.MaxElapsed,
		UserAgent:  opts.UserAgent,
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxElapsed == 0 {
		c.MaxElapsed = defaultMaxRetry
	}
	if c.UserAgent == "" {
		c.UserAgent = UserAgent
	}
	if opts.RatePerSecond > 0 {
		c.Limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
	}
	return c
}

// Do waits for the limiter and sends req with the client's headers.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	return c.HTTPClient.Do(req)
}

// GetJSON fetches url and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url, "application/json", defaultMaxBody)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// GetBody fetches url and returns at most limit bytes of the body.
func (c *Client) GetBody(ctx context.Context, url string, limit int64) ([]byte, error) {
	if limit <= 0 {
		limit = defaultMaxBody
	}
	return c.get(ctx, url, "text/html,application/xhtml+xml,*/*;q=0.8", limit)
}

// get retries network failures, 429 and 5xx with exponential backoff. Other
// statuses fail immediately.
func (c *Client) get(ctx context.Context, url, accept string, limit int64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	var body []byte
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("Accept", accept)

		resp, err := c.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			statusErr := &StatusError{Code: resp.StatusCode, URL: url}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return statusErr
			}
			return backoff.Permanent(statusErr)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, limit))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	if err := backoff.Retry(op, c.backOff(ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	if c.MaxElapsed < 0 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.MaxElapsed
	return backoff.WithContext(bo, ctx)
}
