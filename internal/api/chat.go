// ABOUTME: Chat session repository: CRUD over sessions and message history
// ABOUTME: List and detail queries are cached; mutations invalidate the affected keys

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const sessionListKey = "sessions"

// Session is a chat conversation thread with a server-issued opaque id.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is a single chat message, immutable once confirmed.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    string    `json:"sender"` // "user" or "assistant"
	CreatedAt time.Time `json:"created_at"`
}

// SessionDetail is a session together with its message history.
type SessionDetail struct {
	Session
	Messages []Message `json:"messages"`
}

func sessionKey(id string) string {
	return "session:" + id
}

// ListSessions returns the user's chat sessions, cached until the next
// mutation.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	if cached, ok := c.queries.Get(sessionListKey); ok {
		return cached.([]Session), nil
	}

	var sessions []Session
	if err := c.do(ctx, http.MethodGet, "/api/v1/ai-chat/chats/", nil, &sessions); err != nil {
		return nil, err
	}

	c.queries.Set(sessionListKey, sessions)
	return sessions, nil
}

// CreateSession creates a new chat session. The session list cache is
// invalidated.
func (c *Client) CreateSession(ctx context.Context, title string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/api/v1/ai-chat/chats/", map[string]string{
		"title": title,
	}, &session)
	if err != nil {
		return nil, err
	}

	c.queries.Invalidate(sessionListKey)
	return &session, nil
}

// GetSession fetches a session and its message history, cached until
// the next mutation of that session.
func (c *Client) GetSession(ctx context.Context, id string) (*SessionDetail, error) {
	if cached, ok := c.queries.Get(sessionKey(id)); ok {
		return cached.(*SessionDetail), nil
	}

	var detail SessionDetail
	path := fmt.Sprintf("/api/v1/ai-chat/chats/%s", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &detail); err != nil {
		return nil, err
	}

	c.queries.Set(sessionKey(id), &detail)
	return &detail, nil
}

// RenameSession updates a session's title. Both the session list and
// the session's detail cache are invalidated.
func (c *Client) RenameSession(ctx context.Context, id, title string) error {
	path := fmt.Sprintf("/api/v1/ai-chat/chats/%s/title", id)
	err := c.do(ctx, http.MethodPatch, path, map[string]string{"title": title}, nil)
	if err != nil {
		return err
	}

	c.queries.Invalidate(sessionListKey)
	c.queries.Invalidate(sessionKey(id))
	return nil
}

// DeleteSession deletes a session and its history. Deletion is
// terminal; both caches are invalidated.
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	path := fmt.Sprintf("/api/v1/ai-chat/chats/%s", id)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return err
	}

	c.queries.Invalidate(sessionListKey)
	c.queries.Invalidate(sessionKey(id))
	return nil
}
