// Package client is the authenticated HTTP transport to a cvec store.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/cvector/cvec-go/pkg/logger"
	"github.com/cvector/cvec-go/pkg/metrics"
)

const (
	contentTypeJSON = "application/json"
	// ContentTypeArrow marks Arrow IPC payloads in both directions.
	ContentTypeArrow = "application/vnd.apache.arrow.stream"

	rpcPathPrefix  = "/supabase/rest/v1/rpc/"
	restPathPrefix = "/supabase/rest/v1/"
	dataProfile    = "app_data"

	maxErrorBody   = 512
	defaultTimeout = 30 * time.Second
)

// Request describes one API call. Path is relative to the host; JSON, when
// non-nil, is marshalled as the body and wins over Body.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	JSON        any
	Body        []byte
	ContentType string
	Headers     http.Header
	// Idempotent marks a POST that only reads, so it may be resent after
	// any transient failure like a GET.
	Idempotent bool
}

func (r Request) idempotent() bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return r.Idempotent
}

// Response is a successful API response.
type Response struct {
	Body        []byte
	ContentType string
	Header      http.Header
}

// IsArrow reports whether the body is an Arrow IPC stream.
func (r *Response) IsArrow() bool {
	return strings.HasPrefix(r.ContentType, ContentTypeArrow)
}

// Client talks to one host with one API key. It is safe for concurrent use.
type Client struct {
	host       string
	apiKey     string
	timeout    time.Duration
	httpClient *http.Client
	retryer    *Retryer
	logger     logger.Logger

	refreshGroup singleflight.Group

	mu             sync.RWMutex
	publishableKey string
	accessToken    string
	refreshToken   string
}

// New returns a Client for host. It does not contact the host; call Login
// before issuing requests.
func New(host, apiKey string, opts ...Option) (*Client, error) {
	h, err := NormalizeHost(host)
	if err != nil {
		return nil, err
	}

	c := &Client{
		host:    h,
		apiKey:  apiKey,
		timeout: defaultTimeout,
		retryer: NewRetryer(DefaultRetryConfig()),
		logger:  logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	c.retryer.onRetry = func(attempt int, err error) {
		c.logger.Debug(context.Background(), "retrying request",
			logger.Int("attempt", attempt), logger.Error(err))
	}
	return c, nil
}

// NormalizeHost trims trailing slashes and adds https:// when no scheme is given.
func NormalizeHost(host string) (string, error) {
	host = strings.TrimRight(strings.TrimSpace(host), "/")
	if host == "" {
		return "", fmt.Errorf("host must not be empty")
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	if _, err := url.Parse(host); err != nil {
		return "", fmt.Errorf("invalid host %q: %w", host, err)
	}
	return host, nil
}

// Host returns the normalised base URL.
func (c *Client) Host() string { return c.host }

// Do sends r with the session's bearer token. Transient failures are retried
// (writes only when the store cannot have applied them); a 401 triggers one
// token refresh and one more attempt. If the refresh fails the original 401
// is returned.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	resp, used, err := c.send(ctx, r)
	if err == nil || !errors.Is(err, ErrUnauthorized) || !c.canRefresh() {
		return resp, err
	}

	if rerr := c.refreshFrom(ctx, used); rerr != nil {
		c.logger.Warn(ctx, "token refresh failed, continuing with original error",
			logger.String("path", r.Path), logger.Error(rerr))
		return nil, err
	}
	resp, _, err = c.send(ctx, r)
	return resp, err
}

// DoJSON sends r and decodes a JSON response into out. A nil out discards
// the body.
func (c *Client) DoJSON(ctx context.Context, r Request, out any) error {
	resp, err := c.Do(ctx, r)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

// CallRPC invokes a stored function in the app_data schema.
func (c *Client) CallRPC(ctx context.Context, fn string, params, out any) error {
	key := c.PublishableKey()
	if key == "" {
		return fmt.Errorf("rpc %s: publishable key not available", fn)
	}
	if params == nil {
		params = map[string]any{}
	}
	return c.DoJSON(ctx, Request{
		Method: http.MethodPost,
		Path:   rpcPathPrefix + fn,
		JSON:   params,
		Headers: http.Header{
			"Apikey":          {key},
			"Content-Profile": {dataProfile},
		},
	}, out)
}

// QueryTable reads rows of an app_data table through the REST interface.
// query uses the PostgREST filter syntax, e.g. eav_table_id=eq.<id>.
func (c *Client) QueryTable(ctx context.Context, table string, query url.Values, out any) error {
	key := c.PublishableKey()
	if key == "" {
		return fmt.Errorf("table %s: publishable key not available", table)
	}
	return c.DoJSON(ctx, Request{
		Method: http.MethodGet,
		Path:   restPathPrefix + table,
		Query:  query,
		Headers: http.Header{
			"Apikey":         {key},
			"Accept-Profile": {dataProfile},
		},
	}, out)
}

// PublishableKey returns the key fetched during Login.
func (c *Client) PublishableKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.publishableKey
}

func (c *Client) canRefresh() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken != "" && c.refreshToken != ""
}

func (c *Client) bearer() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.accessToken == "" {
		return "", ErrNoAccessToken
	}
	return "Bearer " + c.accessToken, nil
}

// send runs r through the retryer and reports the bearer header of the last
// attempt.
func (c *Client) send(ctx context.Context, r Request) (*Response, string, error) {
	body, err := requestBody(r)
	if err != nil {
		return nil, "", err
	}

	retryIf := IsRetryable
	if !r.idempotent() {
		retryIf = IsRetryableWrite
	}

	var (
		resp *Response
		used string
	)
	attempt := 0
	err = c.retryer.DoIf(ctx, retryIf, func() error {
		attempt++
		if attempt > 1 {
			metrics.RecordHTTPRetry(r.Path)
		}

		req, err := c.newRequest(ctx, r, body)
		if err != nil {
			return err
		}
		used = req.Header.Get("Authorization")
		data, header, err := c.roundTrip(req, r.Path)
		if err != nil {
			return err
		}
		resp = &Response{Body: data, ContentType: header.Get("Content-Type"), Header: header}
		return nil
	})
	if err != nil {
		return nil, used, err
	}
	return resp, used, nil
}

func requestBody(r Request) ([]byte, error) {
	if r.JSON == nil {
		return r.Body, nil
	}
	b, err := json.Marshal(r.JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}
	return b, nil
}

func (c *Client) newRequest(ctx context.Context, r Request, body []byte) (*http.Request, error) {
	auth, err := c.bearer()
	if err != nil {
		return nil, err
	}

	u := c.host + r.Path
	if len(r.Query) > 0 {
		u += "?" + r.Query.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, u, rd)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	ct := r.ContentType
	if ct == "" {
		ct = contentTypeJSON
	}
	req.Header.Set("Authorization", auth)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Accept", contentTypeJSON)
	for k, vs := range r.Headers {
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}
	return req, nil
}

// roundTrip executes req, records metrics and turns non-2xx responses into
// *StatusError. endpoint labels the metrics.
func (c *Client) roundTrip(req *http.Request, endpoint string) ([]byte, http.Header, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.RecordHTTPRequestDuration(endpoint, req.Method, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordHTTPRequest(endpoint, req.Method, "error")
		return nil, nil, err
	}
	defer resp.Body.Close()

	metrics.RecordHTTPRequest(endpoint, req.Method, strconv.Itoa(resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		se := &StatusError{
			Method: req.Method,
			URL:    req.URL.Redacted(),
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(msg),
			CfID:   resp.Header.Get("x-amz-cf-id"),
		}
		c.logger.Debug(req.Context(), "request failed",
			logger.String("endpoint", endpoint),
			logger.Int("status", resp.StatusCode),
			logger.String("cf_id", se.CfID))
		return nil, resp.Header, se
	}
	return data, resp.Header, nil
}

func decodeJSON(resp *Response, out any) error {
	if out == nil {
		return nil
	}
	if resp.IsArrow() {
		return fmt.Errorf("%w: expected JSON, got %s", ErrDecode, resp.ContentType)
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return nil
}
