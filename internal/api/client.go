// ABOUTME: Authenticated HTTP client for the Nestling backend API
// ABOUTME: Attaches bearer tokens and transparently refreshes once on 401

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/nestlinghq/nestling-cli/internal/cache"
	"github.com/nestlinghq/nestling-cli/internal/tokenstore"
)

const cacheTTL = 30 * time.Second

// Client is the API client for the Nestling backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client // no timeout; streams are bounded by context only
	tokens       *tokenstore.Store
	refreshGroup singleflight.Group
	queries      *cache.Cache

	// OnSessionExpired, when set, is invoked after a failed refresh
	// exchange has cleared the stored tokens. The UI uses it to route
	// back to the login screen.
	OnSessionExpired func()
}

// New creates an API client with the given base URL and token store.
func New(baseURL string, tokens *tokenstore.Store, timeout time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		tokens:       tokens,
		queries:      cache.New(cacheTTL),
	}
}

// do executes an authenticated JSON request. The access token is read
// from the store at call time. On a 401 the client performs exactly one
// refresh exchange and one replay; a second 401 is surfaced as a hard
// failure. The request body is kept as bytes so the replay is faithful.
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	return c.exec(ctx, method, path, in, out, true)
}

// doPublic is do without the refresh-and-replay behavior, for endpoints
// where a 401 means bad credentials rather than an expired token.
func (c *Client) doPublic(ctx context.Context, method, path string, in, out interface{}) error {
	return c.exec(ctx, method, path, in, out, false)
}

func (c *Client) exec(ctx context.Context, method, path string, in, out interface{}, retryOn401 bool) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return c.handleRequestError(ctx, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && retryOn401 {
		drain(resp)
		if refreshErr := c.refresh(ctx); refreshErr != nil {
			slog.Warn("token refresh failed", "error", refreshErr)
			c.expireSession()
			return fmt.Errorf("%s %s unauthorized: %w", method, path, ErrSessionExpired)
		}
		resp, err = c.send(ctx, method, path, body)
		if err != nil {
			return c.handleRequestError(ctx, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return decodeError(resp.StatusCode, respBody)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from backend: %w", err)
	}
	return nil
}

// send builds and executes a single attempt with the current token.
func (c *Client) send(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	return c.httpClient.Do(req)
}

// authorize attaches the bearer token if one is stored. Requests with
// no stored token go out unauthenticated and get the backend's 401.
func (c *Client) authorize(req *http.Request) {
	t, err := c.tokens.Load()
	if err != nil {
		return
	}
	req.Header.Set("Authorization", "Bearer "+t.AccessToken)
}

// refresh exchanges the refresh token for a new pair and persists it.
// Concurrent callers are coalesced: every in-flight request that hits a
// 401 awaits the same exchange and replays with the winning pair.
func (c *Client) refresh(ctx context.Context) error {
	_, err, _ := c.refreshGroup.Do("refresh", func() (interface{}, error) {
		t, err := c.tokens.Load()
		if err != nil {
			return nil, fmt.Errorf("no refresh token: %w", err)
		}

		body, err := json.Marshal(map[string]string{"refresh_token": t.RefreshToken})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/auth/refresh/", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create refresh request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("refresh request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("token refresh failed (status %d): %s", resp.StatusCode, string(respBody))
		}

		var pair tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
			return nil, fmt.Errorf("failed to parse refresh response: %w", err)
		}

		if err := c.tokens.Save(tokenstore.Tokens{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		}); err != nil {
			return nil, fmt.Errorf("failed to persist refreshed tokens: %w", err)
		}

		slog.Debug("access token refreshed")
		return nil, nil
	})
	return err
}

// expireSession clears stored tokens after an irrecoverable refresh
// failure and notifies the UI.
func (c *Client) expireSession() {
	if err := c.tokens.Clear(); err != nil {
		slog.Warn("failed to clear tokens", "error", err)
	}
	if c.OnSessionExpired != nil {
		c.OnSessionExpired()
	}
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("request canceled: %w", context.Canceled)
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", context.DeadlineExceeded)
	}
	return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// tokenResponse is the token pair shape shared by login, register, and
// refresh responses.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
