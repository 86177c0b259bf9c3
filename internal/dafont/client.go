// Package dafont wraps outbound HTTP against the DaFont site: throttled,
// retried fetches plus the HTML parsing helpers that extract font identities
// and preview tokens from listing and detail pages.
package dafont

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// ErrInvalidLink rejects pasted links that match neither a .font page nor a
// dl/?f= download link. Raised before any network I/O.
var ErrInvalidLink = errors.New("unrecognized link: paste a .font page link or a dl/?f= download link")

// FetchError is returned when a remote fetch fails after all retry attempts,
// or immediately for statuses that retrying cannot fix.
type FetchError struct {
	URL        string
	StatusCode int // zero when the failure never produced a response
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// NotFound reports whether the remote resource does not exist, so callers can
// present "not found" instead of a generic transport error.
func (e *FetchError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// Options configures a Client.
type Options struct {
	BaseURL     string
	DownloadURL string
	Timeout     time.Duration
	MinDelay    time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// Client performs throttled, retried HTTP fetches against the DaFont site.
// A randomized delay is inserted between consecutive requests; 429 and 5xx
// responses are retried with increasing backoff, honoring Retry-After.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	downloadURL string
	minDelay    time.Duration
	maxDelay    time.Duration
	maxAttempts int

	mu          sync.Mutex
	lastRequest time.Time
}

// NewClient creates a client with the fixed identifying header set and the
// configured throttle/retry policy.
func NewClient(opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 4
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		baseURL:     opts.BaseURL,
		downloadURL: opts.DownloadURL,
		minDelay:    opts.MinDelay,
		maxDelay:    opts.MaxDelay,
		maxAttempts: opts.MaxAttempts,
	}
}

// BaseURL returns the configured site root.
func (c *Client) BaseURL() string { return c.baseURL }

// PageURL returns the detail page URL for a slug.
func (c *Client) PageURL(slug string) string {
	return fmt.Sprintf("%s/pt/%s.font", c.baseURL, slug)
}

// DownloadURLFor returns the archive download URL for a slug.
func (c *Client) DownloadURLFor(slug string) string {
	return fmt.Sprintf("%s?f=%s", c.downloadURL, slug)
}

// FetchText fetches url and returns the response body as a string.
func (c *Client) FetchText(ctx context.Context, url string) (string, error) {
	body, err := c.fetch(ctx, url)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// FetchBytes fetches url and returns the raw response body.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return c.fetch(ctx, url)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	c.throttle()

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, &FetchError{URL: url, Err: err}
		}
		setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if waitErr := sleepCtx(ctx, backoff(attempt)); waitErr != nil {
				return nil, &FetchError{URL: url, Err: lastErr}
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			body, err := io.ReadAll(resp.Body)
			resp.Body.Close()
			if err != nil {
				lastErr = err
				continue
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			retryAfter := retryAfterDelay(resp, attempt)
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			if waitErr := sleepCtx(ctx, retryAfter); waitErr != nil {
				return nil, &FetchError{URL: url, StatusCode: resp.StatusCode, Err: lastErr}
			}
			continue

		default:
			// 404 and other client errors are not retryable.
			status := resp.StatusCode
			resp.Body.Close()
			return nil, &FetchError{URL: url, StatusCode: status}
		}
	}

	return nil, &FetchError{URL: url, Err: lastErr}
}

// throttle blocks until the randomized inter-request delay has elapsed since
// the previous request.
func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxDelay <= 0 {
		c.lastRequest = time.Now()
		return
	}
	target := c.minDelay
	if span := c.maxDelay - c.minDelay; span > 0 {
		target += time.Duration(rand.Int63n(int64(span)))
	}
	if elapsed := time.Since(c.lastRequest); elapsed < target {
		time.Sleep(target - elapsed)
	}
	c.lastRequest = time.Now()
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	req.Header.Set("Accept",
		"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Connection", "keep-alive")
}

func backoff(attempt int) time.Duration {
	base := time.Duration(attempt) * 900 * time.Millisecond
	jitter := time.Duration(rand.Int63n(int64(600 * time.Millisecond)))
	return base + jitter
}

func retryAfterDelay(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return backoff(attempt)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
