// Package config defines client configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env on top.
// - External errors are wrapped with this package's sentinel errors.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Host is the store base URL; https:// is assumed when no scheme is given.
	Host string `koanf:"host"`

	// APIKey authenticates the client, format cva_ followed by 36 symbols.
	APIKey string `koanf:"api_key"`

	// TimeoutMS bounds a single HTTP round trip.
	TimeoutMS int `koanf:"timeout_ms"`

	// RetryMaxAttempts includes the first attempt.
	RetryMaxAttempts int `koanf:"retry_max_attempts"`

	// RetryBackoffMS is the initial delay between transport retries.
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// Concurrency caps in-flight requests for multi-series queries.
	Concurrency int `koanf:"concurrency"`

	// DefaultStartAt and DefaultEndAt (RFC 3339) bound queries that pass no window.
	DefaultStartAt string `koanf:"default_start_at"`
	DefaultEndAt   string `koanf:"default_end_at"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		TimeoutMS:        30_000,
		RetryMaxAttempts: 3,
		RetryBackoffMS:   200,
		Concurrency:      4,
	}
}

// Timeout returns TimeoutMS as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// RetryBackoff returns RetryBackoffMS as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}

// DefaultWindow parses the default query bounds; unset bounds are nil.
func (c *Config) DefaultWindow() (start, end *time.Time, err error) {
	if start, err = parseBound("default_start_at", c.DefaultStartAt); err != nil {
		return nil, nil, err
	}
	if end, err = parseBound("default_end_at", c.DefaultEndAt); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("%w: default_end_at before default_start_at", ErrInvalidConfig)
	}
	return start, end, nil
}

func parseBound(key, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, key, err)
	}
	return &t, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.TimeoutMS <= 0:
		return fmt.Errorf("%w: timeout_ms must be positive", ErrInvalidConfig)
	case c.RetryMaxAttempts <= 0:
		return fmt.Errorf("%w: retry_max_attempts must be positive", ErrInvalidConfig)
	case c.RetryBackoffMS < 0:
		return fmt.Errorf("%w: retry_backoff_ms must not be negative", ErrInvalidConfig)
	case c.Concurrency <= 0:
		return fmt.Errorf("%w: concurrency must be positive", ErrInvalidConfig)
	}
	_, _, err := c.DefaultWindow()
	return err
}
