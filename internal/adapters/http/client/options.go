package client

import (
	"net/http"
	"time"

	"github.com/cvector/cvec-go/pkg/logger"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client; WithTimeout is then ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds a single round trip.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg RetryConfig) Option {
	return func(c *Client) {
		c.retryer = NewRetryer(cfg)
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}
