package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cvector/cvec-go/pkg/logger"
	"github.com/cvector/cvec-go/pkg/metrics"
)

const (
	apiKeyPrefix    = "cva_"
	apiKeyLength    = 40 // prefix + 36 base62 symbols
	apiKeyIDLength  = 4
	loginEmailHost  = "cvector.app"
	configPath      = "/config"
	tokenPath       = "/supabase/auth/v1/token"
	publishableKeyK = "supabasePublishableKey"
)

// EmailForAPIKey derives the login email from an API key:
// cva_<id><rest> -> cva+<id>@cvector.app, where id is four symbols.
func EmailForAPIKey(apiKey string) (string, error) {
	if !strings.HasPrefix(apiKey, apiKeyPrefix) {
		return "", fmt.Errorf("%w: api key must start with '%s'", ErrInvalidAPIKey, apiKeyPrefix)
	}
	if len(apiKey) != apiKeyLength {
		return "", fmt.Errorf("%w: invalid length, expected %s + 36 symbols", ErrInvalidAPIKey, apiKeyPrefix)
	}
	keyID := apiKey[len(apiKeyPrefix) : len(apiKeyPrefix)+apiKeyIDLength]
	return fmt.Sprintf("cva+%s@%s", keyID, loginEmailHost), nil
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login fetches the publishable key and signs in with the API key. It is
// safe to call again to start a fresh session.
func (c *Client) Login(ctx context.Context) error {
	email, err := EmailForAPIKey(c.apiKey)
	if err != nil {
		return err
	}

	key, err := c.fetchPublishableKey(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.publishableKey = key
	c.mu.Unlock()

	tokens, err := c.requestToken(ctx, "password", map[string]string{
		"email":    email,
		"password": c.apiKey,
	})
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	c.setTokens(tokens)
	c.logger.Info(ctx, "logged in", logger.String("host", c.host))
	return nil
}

func (c *Client) fetchPublishableKey(ctx context.Context) (string, error) {
	url := c.host + configPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w from %s: %w", ErrConfigFetch, url, err)
	}

	body, _, err := c.roundTrip(req, configPath)
	if err != nil {
		return "", fmt.Errorf("%w from %s: %w", ErrConfigFetch, url, err)
	}

	var cfg map[string]any
	if err := json.Unmarshal(body, &cfg); err != nil {
		return "", fmt.Errorf("%w from %s: invalid config response: %w", ErrConfigFetch, url, err)
	}
	key, _ := cfg[publishableKeyK].(string)
	if key == "" {
		return "", fmt.Errorf("%w: configuration fetched from %s is invalid", ErrConfigFetch, url)
	}
	return key, nil
}

// refreshFrom renews the session after a 401 answered to the bearer header
// stale. Concurrent callers share one refresh, and a session that has
// already moved past stale is left alone.
func (c *Client) refreshFrom(ctx context.Context, stale string) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (any, error) {
		if current, _ := c.bearer(); current != stale {
			return nil, nil
		}
		// shared by every waiter; outlives the leader's cancellation
		if err := c.refresh(context.WithoutCancel(ctx)); err != nil {
			metrics.RecordTokenRefresh("failed")
			return nil, err
		}
		metrics.RecordTokenRefresh("ok")
		return nil, nil
	})
	return err
}

// refresh exchanges the refresh token for a new token pair.
func (c *Client) refresh(ctx context.Context) error {
	c.mu.RLock()
	refreshToken := c.refreshToken
	c.mu.RUnlock()
	if refreshToken == "" {
		return fmt.Errorf("no refresh token available")
	}

	tokens, err := c.requestToken(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	c.setTokens(tokens)
	return nil
}

func (c *Client) requestToken(ctx context.Context, grant string, payload map[string]string) (tokenResponse, error) {
	c.mu.RLock()
	key := c.publishableKey
	c.mu.RUnlock()
	if key == "" {
		return tokenResponse{}, fmt.Errorf("publishable key not available")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return tokenResponse{}, err
	}

	url := c.host + tokenPath + "?grant_type=" + grant
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return tokenResponse{}, err
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("apikey", key)

	resp, _, err := c.roundTrip(req, tokenPath)
	if err != nil {
		return tokenResponse{}, err
	}

	var tokens tokenResponse
	if err := json.Unmarshal(resp, &tokens); err != nil {
		return tokenResponse{}, fmt.Errorf("%w: token response: %w", ErrDecode, err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return tokenResponse{}, fmt.Errorf("%w: token response missing access_token or refresh_token", ErrDecode)
	}
	return tokens, nil
}

func (c *Client) setTokens(t tokenResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = t.AccessToken
	c.refreshToken = t.RefreshToken
}
