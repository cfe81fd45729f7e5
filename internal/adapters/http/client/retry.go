package client

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"
)

// RetryConfig configures transport retries.
type RetryConfig struct {
	// MaxAttempts includes the first attempt.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay between retries.
	MaxBackoff time.Duration
	// Multiplier grows the backoff after each retry.
	Multiplier float64
	// Jitter is the ±fraction applied to each delay, between 0 and 1.
	Jitter float64
}

// DefaultRetryConfig returns the retry settings used when none are given.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
		Jitter:         0.1,
	}
}

// Retryer runs an operation until it succeeds, fails permanently, or runs
// out of attempts.
type Retryer struct {
	config  RetryConfig
	retryIf func(error) bool
	onRetry func(attempt int, err error)
}

// NewRetryer normalises config and returns a Retryer.
func NewRetryer(config RetryConfig) *Retryer {
	def := DefaultRetryConfig()
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = def.MaxAttempts
	}
	if config.InitialBackoff < 0 {
		config.InitialBackoff = def.InitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = def.MaxBackoff
	}
	if config.Multiplier <= 0 {
		config.Multiplier = def.Multiplier
	}
	if config.Jitter < 0 || config.Jitter > 1 {
		config.Jitter = def.Jitter
	}
	return &Retryer{config: config, retryIf: IsRetryable}
}

// Do executes op with retries and returns the last error.
func (r *Retryer) Do(ctx context.Context, op func() error) error {
	return r.DoIf(ctx, r.retryIf, op)
}

// DoIf is Do with retryIf deciding which errors are worth another attempt.
func (r *Retryer) DoIf(ctx context.Context, retryIf func(error) bool, op func() error) error {
	var lastErr error
	backoff := r.config.InitialBackoff

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !retryIf(lastErr) || attempt == r.config.MaxAttempts {
			return lastErr
		}
		if r.onRetry != nil {
			r.onRetry(attempt, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.jitter(backoff)):
		}

		backoff = time.Duration(float64(backoff) * r.config.Multiplier)
		if backoff > r.config.MaxBackoff {
			backoff = r.config.MaxBackoff
		}
	}
	return lastErr
}

func (r *Retryer) jitter(d time.Duration) time.Duration {
	if r.config.Jitter == 0 || d == 0 {
		return d
	}
	spread := float64(d) * r.config.Jitter
	return time.Duration(float64(d) + (rand.Float64()*2-1)*spread) //nolint:gosec // jitter only
}

// IsRetryable reports whether err is transient: network failures, 429 and 5xx.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// IsRetryableWrite reports whether a non-idempotent request may be resent:
// only when the store refused it (429, 503) or the connection was never
// established.
func IsRetryableWrite(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code == http.StatusServiceUnavailable
	}
	var oe *net.OpError
	return errors.As(err, &oe) && oe.Op == "dial"
}
