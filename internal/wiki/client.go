// Package wiki is the knowledge-source client: Wikipedia search, page
// summaries and infoboxes, and the Wikidata entity API. All network I/O of
// the enrichment engine goes through here.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/luifiio/cougar/internal/observability"
)

const maxBodyBytes = 8 << 20

// Config holds knowledge-source client configuration.
type Config struct {
	WikipediaAPI  string // Default: https://en.wikipedia.org/w/api.php
	WikipediaREST string // Default: https://en.wikipedia.org/api/rest_v1
	WikipediaPage string // Default: https://en.wikipedia.org/wiki
	WikidataAPI   string // Default: https://www.wikidata.org/w/api.php
	UserAgent     string
	Timeout       time.Duration
	// RatePerSecond caps outbound requests; zero disables the limit.
	RatePerSecond float64
	Burst         int
	HTTPClient    *http.Client
}

// Client talks to Wikipedia and Wikidata.
type Client struct {
	httpClient *http.Client
	cfg        Config
	limiter    *rate.Limiter
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewClient creates a client. logger and metrics may be nil.
func NewClient(cfg Config, logger *observability.Logger, metrics *observability.Metrics) *Client {
	if cfg.WikipediaAPI == "" {
		cfg.WikipediaAPI = "https://en.wikipedia.org/w/api.php"
	}
	if cfg.WikipediaREST == "" {
		cfg.WikipediaREST = "https://en.wikipedia.org/api/rest_v1"
	}
	if cfg.WikipediaPage == "" {
		cfg.WikipediaPage = "https://en.wikipedia.org/wiki"
	}
	if cfg.WikidataAPI == "" {
		cfg.WikidataAPI = "https://www.wikidata.org/w/api.php"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "cougar/1.0"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}

	if logger == nil {
		logger = observability.NopLogger()
	}

	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		limiter:    limiter,
		logger:     logger.WithComponent("wiki"),
		metrics:    metrics,
	}
}

// get performs a GET and returns the body of a 2xx response. A 404 maps to
// ErrNotFound.
func (c *Client) get(ctx context.Context, op, rawURL string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, transportErr(op, 0, err)
		}
	}

	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, transportErr(op, 0, err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	if c.metrics != nil {
		c.metrics.SourceRequests.WithLabelValues(op).Inc()
	}
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportErr(op, 0, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("op", op).
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("source request")

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, transportErr(op, resp.StatusCode, fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, transportErr(op, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}
	return body, nil
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, op, rawURL string, query url.Values, out any) error {
	body, err := c.get(ctx, op, rawURL, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return parseErr(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// titlePath escapes a page title for use as a URL path segment.
func titlePath(title string) string {
	return url.PathEscape(title)
}

// IsAbsent reports whether err means "no data" rather than a failure.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound)
}
