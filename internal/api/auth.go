// ABOUTME: Authentication endpoints: login, register, refresh, logout, profile
// ABOUTME: Successful login/register persist the issued token pair as a side effect

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/nestlinghq/nestling-cli/internal/tokenstore"
)

// User is the authenticated account profile.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// authResponse is returned by login and register.
type authResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Login authenticates with email and password and stores the issued
// token pair.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	var resp authResponse
	err := c.doPublic(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if err := c.tokens.Save(tokenstore.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		return nil, err
	}

	return &resp.User, nil
}

// Register creates a new account and stores the issued token pair.
func (c *Client) Register(ctx context.Context, email, password, fullName string) (*User, error) {
	var resp authResponse
	err := c.doPublic(ctx, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":     email,
		"password":  password,
		"full_name": fullName,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if err := c.tokens.Save(tokenstore.Tokens{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
	}); err != nil {
		return nil, err
	}

	return &resp.User, nil
}

// Logout revokes the session server-side and clears local tokens. The
// local tokens are cleared even when the backend call fails; there is
// nothing useful the client can do with a half-dead session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil); err != nil {
		slog.Warn("server-side logout failed", "error", err)
	}
	return c.tokens.Clear()
}

// Profile fetches the current user's profile.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/profile", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RequestPasswordReset asks the backend to send a reset email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.doPublic(ctx, http.MethodPost, "/api/v1/auth/password-reset", map[string]string{
		"email": email,
	}, nil)
}
