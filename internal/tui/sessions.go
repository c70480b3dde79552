// ABOUTME: Session list screen for the chat TUI
// ABOUTME: Lists existing chat sessions and lets the user open or start one

package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nestlinghq/nestling-cli/internal/api"
	"github.com/nestlinghq/nestling-cli/internal/tui/styles"
)

// SessionChosenMsg is emitted when the user opens an existing session.
type SessionChosenMsg struct {
	Session api.Session
}

// NewChatMsg is emitted when the user starts a fresh conversation.
type NewChatMsg struct{}

// sessionItem adapts api.Session to the bubbles list.
type sessionItem struct {
	session api.Session
}

func (i sessionItem) Title() string { return i.session.Title }
func (i sessionItem) Description() string {
	if i.session.CreatedAt.IsZero() {
		return i.session.ID
	}
	return fmt.Sprintf("started %s", i.session.CreatedAt.Format("Jan 2, 2006"))
}
func (i sessionItem) FilterValue() string { return i.session.Title }

// SessionPicker is the session list screen.
type SessionPicker struct {
	list list.Model
}

// NewSessionPicker builds an empty screen; sessions arrive later via
// SetSessions once the list request completes.
func NewSessionPicker() *SessionPicker {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(styles.Primary).BorderLeftForeground(styles.Primary)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(styles.Muted).BorderLeftForeground(styles.Primary)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Your conversations"
	l.Styles.Title = styles.Title
	l.SetShowStatusBar(false)
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{
			key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new chat")),
		}
	}

	return &SessionPicker{list: l}
}

// SetSessions replaces the listed sessions.
func (p *SessionPicker) SetSessions(sessions []api.Session) {
	items := make([]list.Item, len(sessions))
	for i, s := range sessions {
		items[i] = sessionItem{session: s}
	}
	p.list.SetItems(items)
}

// SetSize resizes the underlying list.
func (p *SessionPicker) SetSize(width, height int) {
	p.list.SetSize(width, height)
}

// Update handles keyboard input for the session list.
func (p *SessionPicker) Update(msg tea.Msg) tea.Cmd {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && !p.list.SettingFilter() {
		switch keyMsg.String() {
		case "enter":
			if item, ok := p.list.SelectedItem().(sessionItem); ok {
				return func() tea.Msg { return SessionChosenMsg{Session: item.session} }
			}
		case "n":
			return func() tea.Msg { return NewChatMsg{} }
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return cmd
}

// View renders the session list.
func (p *SessionPicker) View() string {
	return p.list.View()
}
