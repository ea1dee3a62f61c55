package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// SessionListener lets the application react to session changes. When the
// session ends the application should keep unsaved input and prompt for a
// new login; the client never navigates anywhere on its own.
type SessionListener interface {
	OnRefreshed(id Identity)
	OnSessionEnded(err error)
}

// Options configures a [Client].
type Options struct {
	BaseURL string
	// Base is the underlying transport. Defaults to http.DefaultTransport.
	Base http.RoundTripper
	// Timeout applies to every request and to the refresh round trip.
	Timeout  time.Duration
	Listener SessionListener
	Logger   *slog.Logger
}

// Client is a session-aware HTTP client for a blogauth server.
type Client struct {
	opts      Options
	tokens    *TokenStore
	refresher *HTTPRefresher
	coord     *Coordinator
	raw       *http.Client
	http      *http.Client
	logger    *slog.Logger

	mu       sync.RWMutex
	identity Identity
	loggedIn bool
}

// New returns a client for the server at opts.BaseURL.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("client: base url required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRefreshTimeout
	}
	if opts.Base == nil {
		opts.Base = http.DefaultTransport
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		opts:   opts,
		tokens: &TokenStore{},
		logger: logger,
	}
	c.raw = &http.Client{Transport: opts.Base, Timeout: opts.Timeout}
	c.refresher = &HTTPRefresher{BaseURL: opts.BaseURL, HTTP: c.raw, Tokens: c.tokens}
	c.coord = NewCoordinator(c.refreshSession, CoordinatorOptions{
		Timeout: opts.Timeout,
		Hooks: Hooks{
			OnSessionEnded: c.sessionEnded,
		},
	})
	c.http = &http.Client{
		Transport: &Transport{Base: opts.Base, Tokens: c.tokens, Coordinator: c.coord},
		Timeout:   opts.Timeout,
	}
	return c, nil
}

// HTTPClient returns an http.Client that authenticates every request and
// refreshes the session transparently.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Coordinator exposes the session's refresh coordinator.
func (c *Client) Coordinator() *Coordinator {
	return c.coord
}

// Identity returns the last identity reported by the server.
func (c *Client) Identity() (Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identity, c.loggedIn
}

// Login authenticates and stores the session tokens.
func (c *Client) Login(ctx context.Context, username, password string, rememberMe bool) (Identity, error) {
	body, err := json.Marshal(map[string]any{
		"username":    username,
		"password":    password,
		"remember_me": rememberMe,
	})
	if err != nil {
		return Identity{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/login"), bytes.NewReader(body))
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.raw.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("login request: %w", err)
	}
	defer drainClose(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusBadRequest:
		return Identity{}, ErrNotAuthenticated
	default:
		return Identity{}, fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var s session
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return Identity{}, fmt.Errorf("decode login response: %w", err)
	}
	if s.AccessToken == "" {
		return Identity{}, errors.New("login response carried no access token; enable token exposure on the server")
	}
	c.tokens.Set(s.AccessToken, s.RefreshToken)
	c.setIdentity(s.User, true)
	return s.User, nil
}

// Logout ends the session on the server and forgets the local tokens. Local
// state is cleared even when the server cannot be reached.
func (c *Client) Logout(ctx context.Context) error {
	access, refresh := c.tokens.Access(), c.tokens.Refresh()
	c.tokens.Clear()
	c.setIdentity(Identity{}, false)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/logout"), nil)
	if err != nil {
		return err
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}
	if refresh != "" {
		req.Header.Set(HeaderRefreshToken, refresh)
	}
	resp, err := c.raw.Do(req)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	drainClose(resp)
	return nil
}

// Me asks the server who the current access token belongs to. It does not
// trigger a refresh.
func (c *Client) Me(ctx context.Context) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/me"), nil)
	if err != nil {
		return Identity{}, err
	}
	if access := c.tokens.Access(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.raw.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("me request: %w", err)
	}
	defer drainClose(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		return Identity{}, ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("me: unexpected status %d", resp.StatusCode)
	}
	var id Identity
	if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
		return Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	return id, nil
}

// refreshSession rotates the tokens and re-reads the identity. Once the
// rotation succeeded the cycle succeeds; a failed identity lookup only keeps
// the previous identity.
func (c *Client) refreshSession(ctx context.Context) error {
	if err := c.refresher.Refresh(ctx); err != nil {
		return err
	}
	id, err := c.Me(ctx)
	if err != nil {
		c.logger.Warn("identity lookup after refresh failed", slog.Any("error", err))
		return nil
	}
	c.setIdentity(id, true)
	if c.opts.Listener != nil {
		c.opts.Listener.OnRefreshed(id)
	}
	return nil
}

func (c *Client) sessionEnded(err error) {
	c.logger.Warn("session ended after failed refresh", slog.Any("error", err))
	c.setIdentity(Identity{}, false)
	if c.opts.Listener != nil {
		c.opts.Listener.OnSessionEnded(err)
	}
}

func (c *Client) setIdentity(id Identity, loggedIn bool) {
	c.mu.Lock()
	c.identity, c.loggedIn = id, loggedIn
	c.mu.Unlock()
}

func (c *Client) url(path string) string {
	return c.refresher.url(path)
}
