// Package secrets resolves the API key to use for a store host.
//
// The host to key mapping is a JSON object. It is read, in order, from the
// AWS Secrets Manager secret named by AWS_API_KEYS_SECRET and from the
// API_KEYS_MAPPING environment variable.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/cvector/cvec-go/pkg/logger"
)

const (
	// EnvSecretName names the Secrets Manager secret holding the mapping.
	EnvSecretName = "AWS_API_KEYS_SECRET"
	// EnvMapping holds the mapping as inline JSON.
	EnvMapping = "API_KEYS_MAPPING"
)

// SecretsAPI is the subset of the Secrets Manager client used here.
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput,
		opts ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Loader loads and caches the mapping. A successful load is kept for the
// lifetime of the Loader; failed loads are retried on the next call.
type Loader struct {
	client SecretsAPI
	getenv func(string) string
	logger logger.Logger

	mu     sync.Mutex
	cached map[string]string
}

// Option configures a Loader.
type Option func(*Loader)

// WithSecretsClient sets the Secrets Manager client. Without it a client is
// built from the default AWS configuration on first use.
func WithSecretsClient(c SecretsAPI) Option {
	return func(l *Loader) { l.client = c }
}

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) Option {
	return func(l *Loader) {
		if fn != nil {
			l.getenv = fn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Loader) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{getenv: os.Getenv, logger: logger.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the mapping, or nil when no source provides one.
func (l *Loader) Load(ctx context.Context) map[string]string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil {
		l.logger.Debug(ctx, "using cached API keys")
		return l.cached
	}

	if name := l.getenv(EnvSecretName); name != "" {
		l.logger.Info(ctx, "loading API keys from Secrets Manager", logger.String("secret", name))
		if keys := l.fromSecretsManager(ctx, name); keys != nil {
			l.cached = keys
			return keys
		}
	}

	if raw := l.getenv(EnvMapping); raw != "" {
		l.logger.Info(ctx, "loading API keys from environment", logger.String("var", EnvMapping))
		if keys := l.fromJSON(ctx, EnvMapping, raw); keys != nil {
			l.cached = keys
			return keys
		}
	}

	l.logger.Warn(ctx, "no API key mapping found, set either "+EnvSecretName+" or "+EnvMapping)
	return nil
}

// KeyForHost returns the API key for host; ok is false when the mapping has
// no entry for it.
func (l *Loader) KeyForHost(ctx context.Context, host string) (key string, ok bool, err error) {
	keys := l.Load(ctx)
	if keys == nil {
		return "", false, ErrNoMapping
	}
	key = keys[host]
	if key == "" {
		l.logger.Warn(ctx, "no API key found for host", logger.String("host", host))
		return "", false, nil
	}
	return key, true, nil
}

func (l *Loader) fromSecretsManager(ctx context.Context, name string) map[string]string {
	client, err := l.secretsClient(ctx)
	if err != nil {
		l.logger.Error(ctx, "failed to load AWS config", logger.Error(err))
		return nil
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		l.logger.Error(ctx, "failed to load API keys from Secrets Manager",
			logger.String("secret", name), logger.Error(err))
		return nil
	}
	if out.SecretString == nil {
		l.logger.Warn(ctx, "secret exists but has no value, please populate it", logger.String("secret", name))
		return nil
	}
	raw := aws.ToString(out.SecretString)
	if strings.TrimSpace(raw) == "" {
		l.logger.Warn(ctx, "secret is empty, please populate it", logger.String("secret", name))
		return nil
	}
	return l.fromJSON(ctx, "secret "+name, raw)
}

func (l *Loader) secretsClient(ctx context.Context) (SecretsAPI, error) {
	if l.client != nil {
		return l.client, nil
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}
	l.client = secretsmanager.NewFromConfig(cfg)
	return l.client, nil
}

func (l *Loader) fromJSON(ctx context.Context, source, raw string) map[string]string {
	var keys map[string]string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		l.logger.Error(ctx, "API key mapping must be a JSON object of host to key",
			logger.String("source", source), logger.Error(err))
		return nil
	}
	if keys == nil {
		// JSON null
		l.logger.Error(ctx, "API key mapping must be a JSON object of host to key", logger.String("source", source))
		return nil
	}
	l.logger.Info(ctx, "loaded API keys", logger.String("source", source), logger.Int("hosts", len(keys)))
	return keys
}
