package authz

import (
	"context"
	"fmt"
	"net/http"
	"time"

	httpx "github.com/sofrapos/sofra/pkg/http"
)

// Client talks to the gateway's auth endpoints. It implements ProfileFetcher
// for the resolver and exposes Login/Logout for the terminal's sign-in flow.
type Client struct {
	baseURL string
	timeout time.Duration
}

// NewClient builds a client for the gateway at baseURL, e.g.
// "https://pos.example.com".
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, timeout: 15 * time.Second}
}

type loginResponse struct {
	Data struct {
		Token        string  `json:"token"`
		RefreshToken string  `json:"refresh_token"`
		User         Profile `json:"user"`
	} `json:"data"`
}

type profileResponse struct {
	Data Profile `json:"data"`
}

// Login exchanges credentials for a token and the principal's profile.
func (c *Client) Login(ctx context.Context, email, password string) (string, Profile, error) {
	resp, err := httpx.Post(c.baseURL + "/api/auth/login").
		Body(map[string]string{"email": email, "password": password}).
		Timeout(c.timeout).
		WithContext(ctx).
		Send()
	if err != nil {
		return "", Profile{}, fmt.Errorf("authz: login: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return "", Profile{}, ErrUnauthenticated
	}
	if !resp.OK() {
		return "", Profile{}, fmt.Errorf("authz: login: HTTP %d", resp.StatusCode)
	}

	var out loginResponse
	if err := resp.JSON(&out); err != nil {
		return "", Profile{}, fmt.Errorf("authz: login decode: %w", err)
	}
	return out.Data.Token, out.Data.User, nil
}

// FetchProfile retrieves the current principal's profile. An explicit 401
// maps to ErrUnauthenticated; any other failure is transient. No automatic
// retries here: the resolver decides when to refresh again.
func (c *Client) FetchProfile(ctx context.Context, tok string) (Profile, error) {
	resp, err := httpx.Get(c.baseURL + "/api/auth/profile").
		Bearer(tok).
		Timeout(c.timeout).
		WithContext(ctx).
		Send()
	if err != nil {
		return Profile{}, fmt.Errorf("authz: profile fetch: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return Profile{}, ErrUnauthenticated
	}
	if !resp.OK() {
		return Profile{}, fmt.Errorf("authz: profile fetch: HTTP %d", resp.StatusCode)
	}

	var out profileResponse
	if err := resp.JSON(&out); err != nil {
		return Profile{}, fmt.Errorf("authz: profile decode: %w", err)
	}
	return out.Data, nil
}

// Logout tells the gateway to invalidate the token. Best-effort: local state
// is cleared by the resolver regardless of the outcome here.
func (c *Client) Logout(ctx context.Context, tok string) error {
	if _, err := httpx.Post(c.baseURL + "/api/auth/logout").
		Bearer(tok).
		Timeout(c.timeout).
		WithContext(ctx).
		Send(); err != nil {
		return fmt.Errorf("authz: logout: %w", err)
	}
	return nil
}
