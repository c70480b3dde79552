// ABOUTME: Streaming message sender for the chat endpoint
// ABOUTME: Decodes line-framed "data: <json>" events and supports mid-stream cancellation

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// EventType tags a stream event.
type EventType string

const (
	// EventStart carries the server-allocated assistant message id.
	EventStart EventType = "start"
	// EventChunk carries a text fragment; fragments concatenated in
	// arrival order reconstruct the full assistant message.
	EventChunk EventType = "chunk"
	// EventDone carries the final assistant message id.
	EventDone EventType = "done"
)

// StreamEvent is one decoded event from a streamed send.
type StreamEvent struct {
	Type      EventType
	MessageID string
	Content   string
}

// streamLine is the wire shape of one "data:" payload.
type streamLine struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

const dataPrefix = "data: "

// maxLineSize bounds a single framed line; chunk payloads are small but
// the default scanner buffer (64K) is tight for long assistant turns.
const maxLineSize = 1 << 20

// StreamMessage posts a message to a session and streams the assistant
// reply into ch, which is always closed before returning.
//
// Events arrive strictly in network order: at most one start, then zero
// or more chunks, then at most one done. Malformed lines are logged and
// skipped, never fatal. Cancelling ctx aborts the transport read; a
// caller-initiated cancel is not an error (the return is nil), and if a
// message id was already captured a final done event carrying it is
// still delivered so the caller can reconcile partial state.
//
// This path attaches the bearer token directly instead of going through
// the retrying client: a replayed send would double-post the message.
func (c *Client) StreamMessage(ctx context.Context, sessionID, text string, ch chan<- StreamEvent) error {
	defer close(ch)

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	path := fmt.Sprintf("%s/api/v1/ai-chat/chats/%s/message", c.baseURL, sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil
		}
		return fmt.Errorf("cannot connect to backend at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return decodeError(resp.StatusCode, respBody)
	}

	// The send mutates server-side history, so the cached detail view
	// is stale from here on.
	c.queries.Invalidate(sessionKey(sessionID))

	var lastMessageID string
	doneSent := false

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, dataPrefix) {
			continue
		}

		var ev streamLine
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, dataPrefix)), &ev); err != nil {
			slog.Warn("skipping malformed stream line", "error", err)
			continue
		}

		switch EventType(ev.Type) {
		case EventStart:
			lastMessageID = ev.MessageID
			if !emit(ctx, ch, StreamEvent{Type: EventStart, MessageID: ev.MessageID}) {
				return c.finishCancelled(ch, lastMessageID, doneSent)
			}
		case EventChunk:
			if !emit(ctx, ch, StreamEvent{Type: EventChunk, Content: ev.Content}) {
				return c.finishCancelled(ch, lastMessageID, doneSent)
			}
		case EventDone:
			lastMessageID = ev.MessageID
			doneSent = true
			if !emit(ctx, ch, StreamEvent{Type: EventDone, MessageID: ev.MessageID}) {
				return nil
			}
		default:
			slog.Warn("skipping unknown stream event", "type", ev.Type)
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			// Aborted by the caller: not an error.
			return c.finishCancelled(ch, lastMessageID, doneSent)
		}
		return fmt.Errorf("stream read failed: %w", err)
	}

	// Connection closed. The done event is the only end-of-stream
	// sentinel; a close without one is treated as normal termination.
	return nil
}

// emit delivers an event unless the context has been cancelled.
func emit(ctx context.Context, ch chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// finishCancelled delivers the reconciliation done event after a
// caller-initiated abort. The send must not block forever: the consumer
// may already have stopped reading.
func (c *Client) finishCancelled(ch chan<- StreamEvent, lastMessageID string, doneSent bool) error {
	if lastMessageID != "" && !doneSent {
		select {
		case ch <- StreamEvent{Type: EventDone, MessageID: lastMessageID}:
		case <-time.After(100 * time.Millisecond):
			slog.Debug("consumer gone, dropping reconciliation event", "message_id", lastMessageID)
		}
	}
	return nil
}
