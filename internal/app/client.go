// Package app is the typed client for a cvec store. It wires the transport,
// the query executor and the span builder together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/pkg/logger"
)

const (
	envHost   = "CVEC_HOST"
	envAPIKey = "CVEC_API_KEY"

	defaultConcurrency = 4
	defaultTimeout     = 30 * time.Second
)

// Transport sends authenticated requests to the store.
// *client.Client is the production implementation.
type Transport interface {
	Do(ctx context.Context, r client.Request) (*client.Response, error)
	DoJSON(ctx context.Context, r client.Request, out any) error
	CallRPC(ctx context.Context, fn string, params, out any) error
	QueryTable(ctx context.Context, table string, query url.Values, out any) error
}

// Client is safe for concurrent use.
type Client struct {
	host           string
	apiKey         string
	defaultStartAt *time.Time
	defaultEndAt   *time.Time
	timeout        time.Duration
	retry          client.RetryConfig
	httpClient     *http.Client
	concurrency    int

	transport Transport
	fetcher   ChangeFetcher
	logger    logger.Logger
}

// New builds a Client and logs in. Host and API key default to the CVEC_HOST
// and CVEC_API_KEY environment variables.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	c := &Client{
		host:        os.Getenv(envHost),
		apiKey:      os.Getenv(envAPIKey),
		timeout:     defaultTimeout,
		retry:       client.DefaultRetryConfig(),
		concurrency: defaultConcurrency,
		logger:      logger.GetOrNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		tc, err := c.login(ctx)
		if err != nil {
			return nil, err
		}
		c.transport = tc
	}
	if c.fetcher == nil {
		c.fetcher = c
	}
	return c, nil
}

func (c *Client) login(ctx context.Context) (*client.Client, error) {
	if strings.TrimSpace(c.host) == "" {
		return nil, ErrMissingHost
	}
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	tc, err := client.New(c.host, c.apiKey,
		client.WithTimeout(c.timeout),
		client.WithRetry(c.retry),
		client.WithHTTPClient(c.httpClient),
		client.WithLogger(c.logger.Named("transport")),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}
	c.host = tc.Host()

	if err := tc.Login(ctx); err != nil {
		return nil, fmt.Errorf("login to %s: %w", c.host, err)
	}
	return tc, nil
}

// Host returns the normalised host, empty when a custom transport is used.
func (c *Client) Host() string { return c.host }

// window applies the client defaults to missing bounds.
func (c *Client) window(startAt, endAt *time.Time) (*time.Time, *time.Time) {
	if startAt == nil {
		startAt = c.defaultStartAt
	}
	if endAt == nil {
		endAt = c.defaultEndAt
	}
	return startAt, endAt
}

// checkNames rejects names the comma-joined names parameter cannot carry.
func checkNames(names []string) error {
	for _, n := range names {
		if strings.Contains(n, ",") {
			return fmt.Errorf("%w: %q contains a comma", ErrInvalidName, n)
		}
	}
	return nil
}

// windowQuery encodes the bounds and names; missing values are left out.
func windowQuery(startAt, endAt *time.Time, names []string) url.Values {
	q := url.Values{}
	if startAt != nil {
		q.Set("start_at", startAt.Format(time.RFC3339Nano))
	}
	if endAt != nil {
		q.Set("end_at", endAt.Format(time.RFC3339Nano))
	}
	if len(names) > 0 {
		q.Set("names", strings.Join(names, ","))
	}
	return q
}
