package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mediascrape/msl/internal/engine"
)

// Client fetches and parses HTML pages. It implements engine.Fetcher
// and is safe for concurrent use: sibling crawl branches share one
// Client.
type Client struct {
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64

	// siteHeaders holds extra request headers per hostname, typically
	// auth cookies loaded from the config file.
	siteHeaders map[string]map[string]string

	// delay enforces a minimum interval between request starts, as a
	// politeness setting. Guarded by mu.
	delay   time.Duration
	mu      sync.Mutex
	lastReq time.Time

	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithMaxBodySize limits how many bytes of a response body are read.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithDelay sets the minimum interval between request starts.
// A zero delay disables spacing.
func WithDelay(d time.Duration) Option {
	return func(c *Client) {
		c.delay = d
	}
}

// WithSiteHeaders adds extra request headers for one hostname.
// Useful for sites that need an auth cookie to expose content.
func WithSiteHeaders(host string, headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) == 0 {
			return
		}
		if c.siteHeaders == nil {
			c.siteHeaders = make(map[string]map[string]string)
		}
		c.siteHeaders[strings.ToLower(host)] = headers
	}
}

// WithLogger sets the client's structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the underlying HTTP client, preserving any
// timeout already configured on it. Mainly used by tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client with sensible defaults: a 30 second
// timeout, a 10MB body limit, and no request spacing.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		userAgent:   "msl/1.0 (+https://github.com/mediascrape/msl)",
		maxBodySize: 10 * 1024 * 1024,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Fetch retrieves and parses the page at rawURL.
func (c *Client) Fetch(ctx context.Context, rawURL string) (engine.Page, error) {
	if err := c.pace(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	for k, v := range c.siteHeaders[strings.ToLower(req.URL.Hostname())] {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, rawURL)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	c.logger.Debug("fetched page",
		"url", rawURL,
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	// resp.Request.URL reflects any redirects, so relative references
	// resolve against the page's final location.
	return newPage(doc, resp.Request.URL), nil
}

// pace blocks until the politeness interval since the previous request
// has elapsed. With a zero delay it returns immediately.
func (c *Client) pace(ctx context.Context) error {
	if c.delay <= 0 {
		return nil
	}

	c.mu.Lock()
	wait := c.delay - time.Since(c.lastReq)
	if wait < 0 {
		wait = 0
	}
	c.lastReq = time.Now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}
