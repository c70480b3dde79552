// ABOUTME: Tests for the conversation controller
// ABOUTME: Covers creation-on-first-send, optimistic updates, rollback, and cancel

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nestlinghq/nestling-cli/internal/api"
	"github.com/nestlinghq/nestling-cli/internal/tokenstore"
)

// chatBackend is a fake backend: one session, scripted stream lines.
type chatBackend struct {
	createCalls  int32
	messageCalls int32
	streamLines  []string
	streamStatus int
	gate         chan struct{} // when set, blocks before the last line
	history      []api.Message
}

func (b *chatBackend) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/ai-chat/chats/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.createCalls, 1)
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(api.Session{ID: "s-new", Title: body["title"]})
	})
	mux.HandleFunc("GET /api/v1/ai-chat/chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(struct {
			api.Session
			Messages []api.Message `json:"messages"`
		}{
			Session:  api.Session{ID: r.PathValue("id"), Title: "Untitled"},
			Messages: b.history,
		})
	})
	mux.HandleFunc("POST /api/v1/ai-chat/chats/{id}/message", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&b.messageCalls, 1)
		if b.streamStatus != 0 {
			w.WriteHeader(b.streamStatus)
			fmt.Fprint(w, `{"detail": "boom"}`)
			return
		}
		flusher := w.(http.Flusher)
		for i, line := range b.streamLines {
			if b.gate != nil && i == len(b.streamLines)-1 {
				select {
				case <-b.gate:
				case <-r.Context().Done():
					return
				}
			}
			fmt.Fprintln(w, line)
			flusher.Flush()
		}
	})
	return httptest.NewServer(mux)
}

func newConversation(t *testing.T, serverURL, sessionID string) *Conversation {
	t.Helper()
	store := tokenstore.New(t.TempDir())
	if err := store.Save(tokenstore.Tokens{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return New(api.New(serverURL, store, 5*time.Second), sessionID)
}

func TestSend_CreatesSessionOnFirstMessage(t *testing.T) {
	backend := &chatBackend{
		streamLines: []string{
			`data: {"type":"start","message_id":"m-1"}`,
			`data: {"type":"chunk","content":"Welcome!"}`,
			`data: {"type":"done","message_id":"m-1"}`,
		},
		history: []api.Message{
			{ID: "u-1", Text: "Hello", Sender: "user"},
			{ID: "m-1", Text: "Welcome!", Sender: "assistant"},
		},
	}
	server := backend.server(t)
	defer server.Close()

	conv := newConversation(t, server.URL, "")

	var sawOptimistic bool
	err := conv.Send(context.Background(), "Hello", func(string) {
		// Mid-stream, the optimistic user message must be visible.
		for _, m := range conv.Messages() {
			if m.Sender == "user" && m.Text == "Hello" {
				sawOptimistic = true
			}
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if n := atomic.LoadInt32(&backend.createCalls); n != 1 {
		t.Errorf("expected exactly one session create, got %d", n)
	}
	if n := atomic.LoadInt32(&backend.messageCalls); n != 1 {
		t.Errorf("expected exactly one streamed send, got %d", n)
	}
	if !sawOptimistic {
		t.Error("expected optimistic user message visible during stream")
	}
	if conv.SessionID() != "s-new" {
		t.Errorf("expected session id captured, got %q", conv.SessionID())
	}

	// After done, the rendered list is the confirmed history: the
	// optimistic message is replaced, no synthetic message remains.
	msgs := conv.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 confirmed messages, got %d: %+v", len(msgs), msgs)
	}
	if msgs[0].ID != "u-1" || msgs[1].ID != "m-1" {
		t.Errorf("expected server-confirmed ids, got %+v", msgs)
	}
	if conv.State() != StateIdle {
		t.Errorf("expected idle after completion, got %v", conv.State())
	}
}

func TestSend_ChunkConcatenationMatchesHistory(t *testing.T) {
	backend := &chatBackend{
		streamLines: []string{
			`data: {"type":"start","message_id":"m-1"}`,
			`data: {"type":"chunk","content":"Sleep "}`,
			`data: {"type":"chunk","content":"when the "}`,
			`data: {"type":"chunk","content":"baby sleeps."}`,
			`data: {"type":"done","message_id":"m-1"}`,
		},
		history: []api.Message{
			{ID: "u-1", Text: "Any tips?", Sender: "user"},
			{ID: "m-1", Text: "Sleep when the baby sleeps.", Sender: "assistant"},
		},
	}
	server := backend.server(t)
	defer server.Close()

	conv := newConversation(t, server.URL, "")

	var lastDelta string
	if err := conv.Send(context.Background(), "Any tips?", func(full string) { lastDelta = full }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lastDelta != "Sleep when the baby sleeps." {
		t.Errorf("expected accumulated deltas, got %q", lastDelta)
	}
	msgs := conv.Messages()
	final := msgs[len(msgs)-1]
	if final.Text != lastDelta {
		t.Errorf("streamed text %q diverges from confirmed history %q", lastDelta, final.Text)
	}
}

func TestSend_FailureRollsBackOptimisticMessage(t *testing.T) {
	backend := &chatBackend{streamStatus: http.StatusInternalServerError}
	server := backend.server(t)
	defer server.Close()

	conv := newConversation(t, server.URL, "s-1")
	if err := conv.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before := len(conv.Messages())

	err := conv.Send(context.Background(), "Hello?", nil)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if got := len(conv.Messages()); got != before {
		t.Errorf("expected rollback to %d messages, got %d", before, got)
	}
	if conv.State() != StateIdle {
		t.Errorf("expected idle after failure, got %v", conv.State())
	}
}

func TestSend_SessionCreateFailureRollsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	conv := newConversation(t, server.URL, "")
	if err := conv.Send(context.Background(), "Hello", nil); err == nil {
		t.Fatal("expected error, got nil")
	}
	if got := len(conv.Messages()); got != 0 {
		t.Errorf("expected empty message list after rollback, got %d", got)
	}
}

func TestSend_CancelPreservesPartialText(t *testing.T) {
	backend := &chatBackend{
		streamLines: []string{
			`data: {"type":"start","message_id":"m-1"}`,
			`data: {"type":"chunk","content":"partial "}`,
			`data: {"type":"chunk","content":"answer"}`,
			`data: {"type":"chunk","content":" never seen"}`,
		},
		gate: make(chan struct{}),
	}
	server := backend.server(t)
	defer server.Close()
	defer close(backend.gate)

	conv := newConversation(t, server.URL, "s-1")

	chunks := 0
	err := conv.Send(context.Background(), "Hello", func(string) {
		chunks++
		if chunks == 2 {
			conv.Cancel()
			conv.Cancel() // repeated cancel is a no-op
		}
	})
	if err != nil {
		t.Fatalf("cancel must not surface an error, got %v", err)
	}

	msgs := conv.Messages()
	final := msgs[len(msgs)-1]
	if final.Sender != "assistant" || final.Text != "partial answer" {
		t.Errorf("expected partial text preserved, got %+v", final)
	}
	// The user's sent message stays rendered too.
	if msgs[len(msgs)-2].Text != "Hello" {
		t.Errorf("expected sent message kept, got %+v", msgs[len(msgs)-2])
	}
	if conv.State() != StateIdle {
		t.Errorf("expected idle after cancel, got %v", conv.State())
	}

	// Cancel when idle is a no-op.
	conv.Cancel()
}

func TestSend_CancelBeforeAnyChunkLeavesDraftEmpty(t *testing.T) {
	backend := &chatBackend{
		streamLines: []string{
			`data: {"type":"chunk","content":"never"}`,
		},
		gate: make(chan struct{}),
	}
	server := backend.server(t)
	defer server.Close()
	defer close(backend.gate)

	conv := newConversation(t, server.URL, "s-1")

	go func() {
		// Give the send a moment to get in flight, then cancel.
		time.Sleep(50 * time.Millisecond)
		conv.Cancel()
	}()

	if err := conv.Send(context.Background(), "Hello", nil); err != nil {
		t.Fatalf("cancel must not surface an error, got %v", err)
	}

	for _, m := range conv.Messages() {
		if m.Sender == "assistant" {
			t.Errorf("expected no assistant text after early cancel, got %+v", m)
		}
	}
	if conv.State() != StateIdle {
		t.Errorf("expected idle, got %v", conv.State())
	}
}

func TestSend_RejectsConcurrentSends(t *testing.T) {
	backend := &chatBackend{
		streamLines: []string{
			`data: {"type":"chunk","content":"x"}`,
			`data: {"type":"done","message_id":"m-1"}`,
		},
		gate: make(chan struct{}),
	}
	server := backend.server(t)
	defer server.Close()

	conv := newConversation(t, server.URL, "s-1")

	errCh := make(chan error, 1)
	go func() { errCh <- conv.Send(context.Background(), "first", nil) }()

	// Wait until the first send holds the state machine.
	deadline := time.After(2 * time.Second)
	for conv.State() != StateSending {
		select {
		case <-deadline:
			t.Fatal("first send never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := conv.Send(context.Background(), "second", nil); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(backend.gate)
	if err := <-errCh; err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSend_IgnoresBlankInput(t *testing.T) {
	conv := newConversation(t, "http://localhost:9", "s-1")
	if err := conv.Send(context.Background(), "   \n", nil); err != nil {
		t.Errorf("expected blank input ignored, got %v", err)
	}
}

func TestDeriveTitle_Truncates(t *testing.T) {
	long := strings.Repeat("ab", 40)
	if got := deriveTitle(long); len([]rune(got)) != titleLimit {
		t.Errorf("expected %d-rune title, got %d", titleLimit, len([]rune(got)))
	}
	if got := deriveTitle("short"); got != "short" {
		t.Errorf("expected short title unchanged, got %q", got)
	}
}
