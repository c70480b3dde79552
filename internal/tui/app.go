// ABOUTME: Root bubbletea model for the chat TUI
// ABOUTME: Routes between the session picker and the chat screen

package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nestlinghq/nestling-cli/internal/api"
	"github.com/nestlinghq/nestling-cli/internal/tui/styles"
)

// Screen represents the current TUI screen
type Screen int

const (
	ScreenSessions Screen = iota
	ScreenChat
)

// sessionsLoadedMsg is sent when the session list arrives
type sessionsLoadedMsg struct {
	sessions []api.Session
	err      error
}

// sessionExpiredMsg is sent when a token refresh fails and the user
// must sign in again
type sessionExpiredMsg struct{}

// App is the root model for the TUI
type App struct {
	client  *api.Client
	screen  Screen
	picker  *SessionPicker
	chat    *ChatView
	width   int
	height  int
	err     error
	expired chan struct{}
}

// NewApp creates the root TUI model. The client's session-expired hook
// is wired so a failed refresh drops the user back to the login prompt.
func NewApp(client *api.Client) *App {
	a := &App{
		client:  client,
		screen:  ScreenSessions,
		picker:  NewSessionPicker(),
		expired: make(chan struct{}, 1),
	}
	client.OnSessionExpired = func() {
		select {
		case a.expired <- struct{}{}:
		default:
		}
	}
	return a
}

// Init loads the session list.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loadSessions(), a.watchExpiry())
}

// Update handles messages for the root model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.picker.SetSize(msg.Width, msg.Height-2)
		if a.chat != nil {
			a.chat.SetSize(msg.Width, msg.Height)
		}

	case sessionExpiredMsg:
		a.err = errors.New("your session has expired, please run 'nestling login'")
		return a, tea.Quit

	case sessionsLoadedMsg:
		a.err = msg.err
		if msg.err == nil {
			a.picker.SetSessions(msg.sessions)
		}
		return a, nil

	case SessionChosenMsg:
		a.chat = NewChatView(a.client, msg.Session.ID, a.width, a.height)
		a.screen = ScreenChat
		return a, a.chat.Init()

	case NewChatMsg:
		a.chat = NewChatView(a.client, "", a.width, a.height)
		a.screen = ScreenChat
		return a, a.chat.Init()

	case BackToSessionsMsg:
		a.screen = ScreenSessions
		a.chat = nil
		return a, a.loadSessions()
	}

	switch a.screen {
	case ScreenChat:
		if a.chat != nil {
			return a, a.chat.Update(msg)
		}
	case ScreenSessions:
		return a, a.picker.Update(msg)
	}
	return a, nil
}

// View renders the current screen.
func (a *App) View() string {
	if a.screen == ScreenChat && a.chat != nil {
		return a.chat.View()
	}

	header := styles.Title.Render("Nestling") + " " + styles.Subtitle.Render("conversations")
	body := a.picker.View()
	if a.err != nil {
		body = styles.ErrorText.Render(fmt.Sprintf("Error: %v", a.err)) + "\n" + body
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// loadSessions fetches the session list in the background.
func (a *App) loadSessions() tea.Cmd {
	return func() tea.Msg {
		sessions, err := a.client.ListSessions(context.Background())
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

// watchExpiry surfaces a failed token refresh as a quit-worthy message.
func (a *App) watchExpiry() tea.Cmd {
	return func() tea.Msg {
		<-a.expired
		return sessionExpiredMsg{}
	}
}
