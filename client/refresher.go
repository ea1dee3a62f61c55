package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HeaderRefreshToken must match the server's refresh header.
const HeaderRefreshToken = "X-Refresh-Token"

// Identity is the authenticated user as reported by the server.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

type session struct {
	User         Identity `json:"user"`
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
}

// HTTPRefresher rotates the refresh token against POST {BaseURL}/api/auth/refresh.
type HTTPRefresher struct {
	BaseURL string
	// HTTP must not route through a [Transport] bound to the same coordinator.
	HTTP   *http.Client
	Tokens *TokenStore
	// Prefix defaults to "/api/auth".
	Prefix string
}

// Refresh performs one rotation and stores the new pair.
func (r *HTTPRefresher) Refresh(ctx context.Context) error {
	refresh := r.Tokens.Refresh()
	if refresh == "" {
		return ErrNotAuthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url("/refresh"), nil)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderRefreshToken, refresh)

	resp, err := r.client().Do(req)
	if err != nil {
		return fmt.Errorf("refresh request: %w", err)
	}
	defer drainClose(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		r.Tokens.Clear()
		return ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh: unexpected status %d", resp.StatusCode)
	}

	var s session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return fmt.Errorf("decode refresh response: %w", err)
	}
	if s.AccessToken == "" {
		return fmt.Errorf("refresh response carried no access token")
	}
	r.Tokens.Set(s.AccessToken, s.RefreshToken)
	return nil
}

func (r *HTTPRefresher) client() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return http.DefaultClient
}

func (r *HTTPRefresher) url(path string) string {
	prefix := r.Prefix
	if prefix == "" {
		prefix = "/api/auth"
	}
	return strings.TrimRight(r.BaseURL, "/") + prefix + path
}
