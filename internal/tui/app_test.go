// ABOUTME: Integration tests for the chat TUI root model
// ABOUTME: Tests screen routing and state transitions

package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nestlinghq/nestling-cli/internal/api"
	"github.com/nestlinghq/nestling-cli/internal/tokenstore"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	tokens := tokenstore.New(t.TempDir())
	client := api.New("http://localhost:8080", tokens, 5*time.Second)
	return NewApp(client)
}

func TestAppInitialState(t *testing.T) {
	app := newTestApp(t)

	if app.screen != ScreenSessions {
		t.Errorf("expected initial screen to be ScreenSessions, got %d", app.screen)
	}
	if app.picker == nil {
		t.Error("expected session picker to be initialized")
	}
	if app.chat != nil {
		t.Error("expected no chat view before a session is chosen")
	}
}

func TestAppSessionsLoadedMsg(t *testing.T) {
	app := newTestApp(t)
	// Size the picker the way the terminal would, or the list renders
	// at zero height and shows no items.
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	sessions := []api.Session{
		{ID: "s-1", Title: "Sleep schedules"},
		{ID: "s-2", Title: "First foods"},
	}

	model, _ := app.Update(sessionsLoadedMsg{sessions: sessions})

	result := model.(*App)
	if result.err != nil {
		t.Errorf("expected no error, got %v", result.err)
	}
	if result.screen != ScreenSessions {
		t.Errorf("expected to stay on ScreenSessions, got %d", result.screen)
	}
	view := result.View()
	if !strings.Contains(view, "Sleep schedules") {
		t.Errorf("expected session title in view, got:\n%s", view)
	}
}

func TestAppSessionChosenOpensChat(t *testing.T) {
	app := newTestApp(t)
	app.width = 100
	app.height = 40

	msg := SessionChosenMsg{Session: api.Session{ID: "s-1", Title: "Sleep schedules"}}
	model, cmd := app.Update(msg)

	result := model.(*App)
	if result.screen != ScreenChat {
		t.Errorf("expected screen to be ScreenChat after choosing session, got %d", result.screen)
	}
	if result.chat == nil {
		t.Fatal("expected chat view to be created")
	}
	if cmd == nil {
		t.Error("expected chat init command (history load)")
	}
}

func TestAppNewChatSkipsHistoryLoad(t *testing.T) {
	app := newTestApp(t)
	app.width = 100
	app.height = 40

	model, _ := app.Update(NewChatMsg{})

	result := model.(*App)
	if result.screen != ScreenChat {
		t.Errorf("expected screen to be ScreenChat for a fresh chat, got %d", result.screen)
	}
	if result.chat == nil {
		t.Fatal("expected chat view to be created")
	}
	if !result.chat.loaded {
		t.Error("expected a fresh chat to need no history load")
	}
}

func TestAppBackToSessionsReloadsList(t *testing.T) {
	app := newTestApp(t)
	app.width = 100
	app.height = 40
	app.Update(NewChatMsg{})

	model, cmd := app.Update(BackToSessionsMsg{})

	result := model.(*App)
	if result.screen != ScreenSessions {
		t.Errorf("expected screen to be ScreenSessions, got %d", result.screen)
	}
	if result.chat != nil {
		t.Error("expected chat view to be discarded")
	}
	if cmd == nil {
		t.Error("expected a session list reload command")
	}
}

func TestAppCtrlCQuits(t *testing.T) {
	app := newTestApp(t)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if msg := cmd(); msg == nil {
		t.Error("expected quit message")
	}
}

func TestAppSessionExpiredQuits(t *testing.T) {
	app := newTestApp(t)

	model, cmd := app.Update(sessionExpiredMsg{})

	result := model.(*App)
	if result.err == nil {
		t.Error("expected an error explaining the expired session")
	}
	if cmd == nil {
		t.Fatal("expected quit command after session expiry")
	}
}

func TestAppWindowResizePropagates(t *testing.T) {
	app := newTestApp(t)
	app.Update(NewChatMsg{})

	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 50})

	result := model.(*App)
	if result.width != 120 || result.height != 50 {
		t.Errorf("expected size 120x50, got %dx%d", result.width, result.height)
	}
	if result.chat.width != 120 {
		t.Errorf("expected chat view width 120, got %d", result.chat.width)
	}
}

func TestChatViewEscWhileIdleGoesBack(t *testing.T) {
	app := newTestApp(t)
	app.width = 100
	app.height = 40
	app.Update(NewChatMsg{})

	cmd := app.chat.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected a command from esc")
	}
	if _, ok := cmd().(BackToSessionsMsg); !ok {
		t.Error("expected BackToSessionsMsg when idle")
	}
}

func TestChatViewEnterIgnoresBlankInput(t *testing.T) {
	app := newTestApp(t)
	app.width = 100
	app.height = 40
	app.Update(NewChatMsg{})

	cmd := app.chat.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("expected no command when composer is empty")
	}
	if app.chat.sending {
		t.Error("expected no send to start on blank input")
	}
}
