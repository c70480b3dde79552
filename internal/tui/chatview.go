// ABOUTME: Chat screen: viewport of messages plus a textarea composer
// ABOUTME: Streams assistant replies into the viewport and wires Esc to cancel

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nestlinghq/nestling-cli/internal/api"
	"github.com/nestlinghq/nestling-cli/internal/chat"
	"github.com/nestlinghq/nestling-cli/internal/tui/styles"
)

const composerHeight = 3

// streamDeltaMsg carries the accumulated assistant text so far.
type streamDeltaMsg struct {
	text string
}

// sendFinishedMsg is sent when the in-flight send returns.
type sendFinishedMsg struct {
	err error
}

// historyLoadedMsg is sent when an existing session's history arrives.
type historyLoadedMsg struct {
	err error
}

// BackToSessionsMsg asks the root model to return to the session list.
type BackToSessionsMsg struct{}

// ChatView is the chat screen model.
type ChatView struct {
	conv     *chat.Conversation
	viewport viewport.Model
	composer textarea.Model
	spin     spinner.Model

	events  chan tea.Msg
	sending bool
	loaded  bool
	err     error

	width  int
	height int
}

// NewChatView creates the chat screen. An empty session id starts a
// fresh conversation that is created on the first send.
func NewChatView(client *api.Client, sessionID string, width, height int) *ChatView {
	composer := textarea.New()
	composer.Placeholder = "Ask anything about your little one..."
	composer.SetHeight(composerHeight)
	composer.CharLimit = 4000
	composer.ShowLineNumbers = false
	composer.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	v := &ChatView{
		conv:     chat.New(client, sessionID),
		viewport: viewport.New(width, max(1, height-composerHeight-4)),
		composer: composer,
		spin:     spin,
		events:   make(chan tea.Msg),
		loaded:   sessionID == "",
		width:    width,
		height:   height,
	}
	v.refreshViewport()
	return v
}

// Init loads history for existing sessions.
func (v *ChatView) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if !v.loaded {
		cmds = append(cmds, v.loadHistory())
	}
	return tea.Batch(cmds...)
}

// SetSize resizes the viewport and composer.
func (v *ChatView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(1, height-composerHeight-4)
	v.composer.SetWidth(width)
	v.refreshViewport()
}

// Update handles chat screen messages.
func (v *ChatView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if v.sending {
				// Cancel only affects the in-flight send.
				v.conv.Cancel()
				return nil
			}
			return func() tea.Msg { return BackToSessionsMsg{} }
		case "enter":
			if v.sending {
				return nil // send affordance disabled while streaming
			}
			text := strings.TrimSpace(v.composer.Value())
			if text == "" {
				return nil
			}
			v.composer.Reset()
			v.err = nil
			v.sending = true
			v.refreshViewport()
			return tea.Batch(v.startSend(text), v.listen(), v.spin.Tick)
		}

	case historyLoadedMsg:
		v.loaded = true
		v.err = msg.err
		v.refreshViewport()
		return nil

	case streamDeltaMsg:
		v.refreshViewport()
		return v.listen()

	case sendFinishedMsg:
		v.sending = false
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			v.err = msg.err
		}
		v.refreshViewport()
		return nil

	case spinner.TickMsg:
		if !v.sending {
			return nil
		}
		var cmd tea.Cmd
		v.spin, cmd = v.spin.Update(msg)
		return cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	v.composer, cmd = v.composer.Update(msg)
	cmds = append(cmds, cmd)
	v.viewport, cmd = v.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return tea.Batch(cmds...)
}

// View renders the chat screen.
func (v *ChatView) View() string {
	title := v.conv.Title()
	if title == "" {
		title = "New conversation"
	}

	var status string
	switch {
	case v.err != nil:
		status = styles.ErrorText.Render(v.err.Error())
	case v.sending:
		status = v.spin.View() + styles.Subtitle.Render(" thinking... (esc to stop)")
	default:
		status = styles.HelpText.Render("enter: send • esc: back • ctrl+c: quit")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render(title),
		v.viewport.View(),
		styles.Panel.Render(v.composer.View()),
		status,
	)
}

// startSend runs the blocking send in the background, forwarding each
// accumulated delta into the event channel the listen command drains.
func (v *ChatView) startSend(text string) tea.Cmd {
	return func() tea.Msg {
		go func() {
			err := v.conv.Send(context.Background(), text, func(full string) {
				v.events <- streamDeltaMsg{text: full}
			})
			v.events <- sendFinishedMsg{err: err}
		}()
		return nil
	}
}

// listen waits for the next stream event.
func (v *ChatView) listen() tea.Cmd {
	return func() tea.Msg {
		return <-v.events
	}
}

// loadHistory fetches the confirmed history for an existing session.
func (v *ChatView) loadHistory() tea.Cmd {
	return func() tea.Msg {
		return historyLoadedMsg{err: v.conv.Load(context.Background())}
	}
}

// refreshViewport re-renders the transcript into the viewport and
// scrolls to the bottom.
func (v *ChatView) refreshViewport() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

// renderTranscript formats the conversation's messages.
func (v *ChatView) renderTranscript() string {
	msgs := v.conv.Messages()
	if len(msgs) == 0 {
		return styles.Subtitle.Render("No messages yet. Say hi!")
	}

	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		label := styles.UserLabel.Render("You")
		text := m.Text
		if m.Sender == "assistant" {
			label = styles.AssistantLabel.Render("Nestling")
			if v.sending && i == len(msgs)-1 {
				text = styles.StreamingText.Render(text)
			}
		}
		fmt.Fprintf(&b, "%s\n%s", label, text)
	}
	return b.String()
}
