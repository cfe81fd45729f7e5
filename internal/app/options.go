package app

import (
	"net/http"
	"time"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/pkg/logger"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHost sets the store host; https:// is assumed when no scheme is given.
func WithHost(host string) Option {
	return func(c *Client) {
		if host != "" {
			c.host = host
		}
	}
}

// WithAPIKey sets the API key used to log in.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.apiKey = key
		}
	}
}

// WithDefaultStartAt bounds queries that pass no start.
func WithDefaultStartAt(t time.Time) Option {
	return func(c *Client) {
		c.defaultStartAt = &t
	}
}

// WithDefaultEndAt bounds queries that pass no end.
func WithDefaultEndAt(t time.Time) Option {
	return func(c *Client) {
		c.defaultEndAt = &t
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTimeout bounds a single HTTP round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient transport failures.
func WithRetry(cfg client.RetryConfig) Option {
	return func(c *Client) {
		c.retry = cfg
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTransport uses t instead of logging in to a host. Host and API key are
// then not required.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithChangeFetcher replaces the query executor used by GetSpans.
func WithChangeFetcher(f ChangeFetcher) Option {
	return func(c *Client) {
		c.fetcher = f
	}
}

// WithConcurrency caps in-flight requests of multi-series queries.
func WithConcurrency(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.concurrency = n
		}
	}
}
