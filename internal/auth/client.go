// Package auth is the HTTP client of the Auth Gateway.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	applog "hopper/internal/log"
)

const defaultTimeout = 10 * time.Second

// Config describes how the gateway client should be initialised.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client offers a thin wrapper around the gateway's auth and platform endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	profiles   singleflight.Group
}

// NewClient builds a Client for the gateway rooted at cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("auth: base url must not be empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("auth: invalid base url %q", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}, nil
}

// Login authenticates credentials and returns the issued token with a user snapshot.
func (c *Client) Login(ctx context.Context, payload LoginPayload) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", payload, &out, FallbackLogin); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// Register creates an account and authenticates it in one call.
func (c *Client) Register(ctx context.Context, payload RegisterPayload) (AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", payload, &out, FallbackRegister); err != nil {
		return AuthResponse{}, err
	}
	return out, nil
}

// CurrentUser fetches the full profile for token. Concurrent calls for the same token share one
// request.
func (c *Client) CurrentUser(ctx context.Context, token string) (User, error) {
	ch := c.profiles.DoChan(token, func() (any, error) {
		var out User
		err := c.do(context.WithoutCancel(ctx), http.MethodGet, "/api/auth/me", token, nil, &out, FallbackCurrentUser)
		return out, err
	})

	select {
	case <-ctx.Done():
		return User{}, transportError(ctx.Err(), FallbackCurrentUser)
	case res := <-ch:
		if res.Err != nil {
			return User{}, res.Err
		}
		return res.Val.(User), nil
	}
}

// Logout asks the gateway to invalidate token. The Authorization header is only sent when token
// is not empty.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", token, nil, nil, FallbackLogout)
}

// Platforms lists the sales channels visible to token.
func (c *Client) Platforms(ctx context.Context, token string) ([]Platform, error) {
	var out []Platform
	if err := c.do(ctx, http.MethodGet, "/api/platforms", token, nil, &out, FallbackPlatforms); err != nil {
		return nil, err
	}
	if out == nil {
		out = []Platform{}
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, in, out any, fallback string) error {
	var body io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return transportError(fmt.Errorf("auth: encode request: %w", err), fallback)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return transportError(fmt.Errorf("auth: build request: %w", err), fallback)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		applog.Debug(ctx, "gateway call failed", "method", method, "path", path, "error", err)
		return transportError(fmt.Errorf("auth: call gateway: %w", err), fallback)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		gwErr := buildError(resp, fallback)
		applog.Debug(ctx, "gateway rejected request", "method", method, "path", path, "status", resp.StatusCode, "message", gwErr.Message)
		return gwErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("auth: decode response: %w", err)}
	}
	return nil
}
