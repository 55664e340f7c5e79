package source

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"ContentIngestor/internal/retry"
)

const (
	defaultUserAgent = "ContentIngestor/1.0"
	maxBodyBytes     = 8 << 20
)

// HTTPConfig tunes the shared upstream client.
type HTTPConfig struct {
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requestsPerSecond"`
	Burst             int           `yaml:"burst"`
	UserAgent         string        `yaml:"userAgent"`
}

// HTTPClient performs rate-limited GETs and classifies failures:
// network errors, 429 and 5xx are transient; other 4xx are permanent.
type HTTPClient struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// NewHTTPClient builds a client; zero values fall back to a 20s timeout and
// one request per second.
func NewHTTPClient(cfg HTTPConfig, client *http.Client) *HTTPClient {
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Limit(1)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &HTTPClient{client: client, limiter: rate.NewLimiter(limit, burst), userAgent: ua}
}

// Get fetches url and returns the body.
func (c *HTTPClient) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	body, _, err := c.Fetch(ctx, url, headers)
	return body, err
}

// Fetch is Get that also returns the response headers.
func (c *HTTPClient) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, errors.Wrap(err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, nil, retry.Transient(errors.Wrapf(err, "get %s", url))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, retry.Transient(errors.Wrap(err, "read body"))
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := errors.Newf("upstream %s returned %s: %s", url, resp.Status, snippet(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return nil, nil, retry.Transient(statusErr)
		}
		return nil, nil, statusErr
	}

	return body, resp.Header, nil
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 256 {
		s = s[:256]
	}
	return s
}
