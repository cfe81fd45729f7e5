package app

import (
	"context"
	"fmt"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/internal/config"
	"github.com/cvector/cvec-go/pkg/logger"
)

// KeySource looks up the API key of a host. *secrets.Loader implements it.
type KeySource interface {
	KeyForHost(ctx context.Context, host string) (string, bool, error)
}

// OptionsFromConfig translates cfg into client options. When cfg has no API
// key and keys is non-nil, the key is looked up by host, first as configured
// and then in its normalised https form.
func OptionsFromConfig(ctx context.Context, cfg *config.Config, keys KeySource) ([]Option, error) {
	start, end, err := cfg.DefaultWindow()
	if err != nil {
		return nil, err
	}

	opts := []Option{
		WithHost(cfg.Host),
		WithTimeout(cfg.Timeout()),
		WithRetry(client.RetryConfig{
			MaxAttempts:    cfg.RetryMaxAttempts,
			InitialBackoff: cfg.RetryBackoff(),
		}),
		WithConcurrency(cfg.Concurrency),
		WithLogger(logger.GetOrNop()),
	}
	if start != nil {
		opts = append(opts, WithDefaultStartAt(*start))
	}
	if end != nil {
		opts = append(opts, WithDefaultEndAt(*end))
	}

	key := cfg.APIKey
	if key == "" && keys != nil && cfg.Host != "" {
		if key, err = lookupKey(ctx, cfg.Host, keys); err != nil {
			return nil, err
		}
	}
	if key != "" {
		opts = append(opts, WithAPIKey(key))
	}
	return opts, nil
}

func lookupKey(ctx context.Context, host string, keys KeySource) (string, error) {
	key, ok, err := keys.KeyForHost(ctx, host)
	if err != nil {
		return "", fmt.Errorf("api key for %s: %w", host, err)
	}
	if ok {
		return key, nil
	}
	normalized, err := client.NormalizeHost(host)
	if err != nil || normalized == host {
		return "", nil
	}
	key, _, err = keys.KeyForHost(ctx, normalized)
	if err != nil {
		return "", fmt.Errorf("api key for %s: %w", normalized, err)
	}
	return key, nil
}
