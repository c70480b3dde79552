// ABOUTME: Chat command for the nestling CLI
// ABOUTME: Launches the interactive TUI or streams a one-shot question

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nestlinghq/nestling-cli/internal/chat"
	"github.com/nestlinghq/nestling-cli/internal/tui"
)

var chatSessionID string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Chat with the Nestling assistant",
	Long: `Open the interactive chat TUI, or pass a message to ask a one-shot
question and stream the answer to stdout.`,
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		var exitCode int
		if len(args) > 0 {
			exitCode = runAsk(ctx, os.Stdout, strings.Join(args, " "))
		} else {
			exitCode = runChatTUI(ctx)
		}
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Continue an existing session instead of starting a new one")
	rootCmd.AddCommand(chatCmd)
}

// runChatTUI starts the full-screen chat interface
func runChatTUI(ctx context.Context) int {
	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	app := tui.NewApp(client)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runAsk sends a single message and streams the reply to w
func runAsk(ctx context.Context, w io.Writer, message string) int {
	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	conv := chat.New(client, chatSessionID)
	if chatSessionID != "" {
		if err := conv.Load(ctx); err != nil {
			printAPIError(w, err)
			return 1
		}
	}

	var printed int
	err = conv.Send(ctx, message, func(full string) {
		// onDelta reports the full accumulated text; print only the tail.
		fmt.Fprint(w, full[printed:])
		printed = len(full)
	})
	if err != nil {
		printAPIError(w, err)
		return 1
	}
	fmt.Fprintln(w)

	if chatSessionID == "" && conv.SessionID() != "" {
		fmt.Fprintf(w, "(session %s, continue with --session)\n", conv.SessionID())
	}
	return 0
}
