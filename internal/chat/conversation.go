// ABOUTME: Conversation controller for the chat screen
// ABOUTME: Owns the idle/sending state machine, optimistic inserts, and stream accumulation

package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nestlinghq/nestling-cli/internal/api"
)

// ErrBusy is returned when a send is attempted while one is in flight.
// Only one outbound send may be in flight per conversation.
var ErrBusy = errors.New("a message is already being sent")

// State is the conversation's send state.
type State int

const (
	StateIdle State = iota
	StateSending
)

const titleLimit = 50

// Conversation orchestrates a single chat session: creation on first
// message, optimistic insertion of the user's message, accumulation of
// streamed assistant text, and cancellation.
//
// The rendered message list is always the server-confirmed history,
// plus the optimistic user message while unconfirmed, plus at most one
// synthetic in-flight assistant message. The synthetic message never
// outlives the request that created it.
type Conversation struct {
	client *api.Client

	mu        sync.Mutex
	sessionID string
	title     string
	state     State
	cancel    context.CancelFunc

	history    []api.Message // server-confirmed
	optimistic *api.Message  // user message awaiting confirmation
	draft      string        // streamed assistant text
	draftID    string        // assistant message id, once known
}

// New creates a conversation controller. An empty sessionID means the
// session is created on the first send.
func New(client *api.Client, sessionID string) *Conversation {
	return &Conversation{client: client, sessionID: sessionID}
}

// Load fetches the confirmed history for an existing session.
func (c *Conversation) Load(ctx context.Context) error {
	c.mu.Lock()
	id := c.sessionID
	c.mu.Unlock()
	if id == "" {
		return nil
	}

	detail, err := c.client.GetSession(ctx, id)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.title = detail.Title
	c.history = detail.Messages
	return nil
}

// SessionID returns the session id, empty until the first send.
func (c *Conversation) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// Title returns the session title.
func (c *Conversation) Title() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.title
}

// State returns the current send state.
func (c *Conversation) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns the list to render: confirmed history, the
// optimistic user message if any, and the synthetic streaming message
// if any assistant text has accumulated.
func (c *Conversation) Messages() []api.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]api.Message, len(c.history), len(c.history)+2)
	copy(out, c.history)
	if c.optimistic != nil {
		out = append(out, *c.optimistic)
	}
	if c.draft != "" {
		out = append(out, api.Message{
			ID:     c.draftID,
			Text:   c.draft,
			Sender: "assistant",
		})
	}
	return out
}

// Send posts text to the session, creating the session first if none
// exists, and blocks until the stream completes, fails, or is
// cancelled. onDelta, when non-nil, is called after every received
// chunk with the full accumulated assistant text so far.
//
// On outright failure the optimistic user message is rolled back and
// the prior confirmed state is restored. On user cancel the partial
// assistant text is preserved as the last rendered state.
func (c *Conversation) Send(ctx context.Context, text string, onDelta func(string)) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateSending
	sendCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	// Optimistic insert: the user's message renders immediately with a
	// locally synthesized id. The previous draft is overwritten now.
	c.optimistic = &api.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    "user",
		CreatedAt: time.Now(),
	}
	c.draft = ""
	c.draftID = ""
	sessionID := c.sessionID
	c.mu.Unlock()

	defer func() {
		cancel()
		c.mu.Lock()
		c.state = StateIdle
		c.cancel = nil
		c.mu.Unlock()
	}()

	// Create the session on first message, a single round trip.
	if sessionID == "" {
		session, err := c.client.CreateSession(ctx, deriveTitle(text))
		if err != nil {
			c.rollback()
			return err
		}
		c.mu.Lock()
		c.sessionID = session.ID
		c.title = session.Title
		sessionID = session.ID
		c.mu.Unlock()
	}

	events := make(chan api.StreamEvent)
	errCh := make(chan error, 1)
	go func() {
		errCh <- c.client.StreamMessage(sendCtx, sessionID, text, events)
	}()

	for ev := range events {
		switch ev.Type {
		case api.EventStart:
			c.mu.Lock()
			c.draftID = ev.MessageID
			c.mu.Unlock()
		case api.EventChunk:
			c.mu.Lock()
			c.draft += ev.Content
			full := c.draft
			c.mu.Unlock()
			if onDelta != nil {
				onDelta(full)
			}
		case api.EventDone:
			c.mu.Lock()
			c.draftID = ev.MessageID
			c.mu.Unlock()
		}
	}

	if err := <-errCh; err != nil {
		c.rollback()
		return err
	}

	if sendCtx.Err() != nil {
		// User-initiated cancel: keep the partial assistant text on
		// screen and fold the sent message into local history.
		c.keepPartial()
		return nil
	}

	// Stream finished, with or without an explicit done event (the
	// connection closing is also a terminator).
	c.confirm(ctx)
	return nil
}

// Cancel aborts the in-flight send. It is a no-op when idle and
// idempotent under repeated calls.
func (c *Conversation) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSending && c.cancel != nil {
		c.cancel()
	}
}

// rollback removes the optimistic message and transient draft after an
// outright failure, restoring the prior confirmed state.
func (c *Conversation) rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.optimistic = nil
	c.draft = ""
	c.draftID = ""
}

// keepPartial retains the accumulated assistant text after a cancel.
// The user message was delivered, so it moves into local history; the
// partial draft stays rendered until the next send overwrites it.
func (c *Conversation) keepPartial() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.optimistic != nil {
		c.history = append(c.history, *c.optimistic)
		c.optimistic = nil
	}
}

// confirm replaces local transient state with the server-confirmed
// history once the stream finishes.
func (c *Conversation) confirm(ctx context.Context) {
	c.mu.Lock()
	sessionID := c.sessionID
	c.mu.Unlock()

	detail, err := c.client.GetSession(ctx, sessionID)
	if err != nil {
		// Refetch is best effort: keep a local reconstruction so the
		// rendered text never regresses.
		slog.Warn("history refetch failed, keeping local reconstruction", "error", err)
		c.mu.Lock()
		if c.optimistic != nil {
			c.history = append(c.history, *c.optimistic)
			c.optimistic = nil
		}
		if c.draft != "" {
			c.history = append(c.history, api.Message{
				ID:        c.draftID,
				Text:      c.draft,
				Sender:    "assistant",
				CreatedAt: time.Now(),
			})
			c.draft = ""
			c.draftID = ""
		}
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.history = detail.Messages
	c.title = detail.Title
	c.optimistic = nil
	c.draft = ""
	c.draftID = ""
	c.mu.Unlock()
}

// deriveTitle builds an initial session title from the first message.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleLimit {
		return text
	}
	return string(runes[:titleLimit])
}
