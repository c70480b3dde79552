// ABOUTME: Session management commands for the nestling CLI
// ABOUTME: Lists, renames, and deletes saved chat sessions

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nestlinghq/nestling-cli/internal/api"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved chat sessions",
	Long:  `List, rename, and delete your saved Nestling conversations.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chat sessions",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runSessionsList(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> <title>",
	Short: "Rename a chat session",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runSessionsRename(ctx, os.Stdout, args[0], args[1])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a chat session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runSessionsDelete(ctx, os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsRenameCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
	rootCmd.AddCommand(sessionsCmd)
}

// runSessionsList prints all sessions and returns an exit code
func runSessionsList(ctx context.Context, w io.Writer) int {
	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	sessions, err := client.ListSessions(ctx)
	if err != nil {
		printAPIError(w, err)
		return 1
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatSessionsJSON(sessions))
	} else {
		fmt.Fprintln(w, formatSessionsHuman(sessions))
	}
	return 0
}

// runSessionsRename changes a session title and returns an exit code
func runSessionsRename(ctx context.Context, w io.Writer, id, title string) int {
	if strings.TrimSpace(title) == "" {
		fmt.Fprintln(w, "Error: title must not be empty")
		return 2
	}

	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if err := client.RenameSession(ctx, id, title); err != nil {
		printAPIError(w, err)
		return 1
	}

	fmt.Fprintf(w, "Renamed session %s to %q\n", id, title)
	return 0
}

// runSessionsDelete removes a session and returns an exit code
func runSessionsDelete(ctx context.Context, w io.Writer, id string) int {
	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if err := client.DeleteSession(ctx, id); err != nil {
		printAPIError(w, err)
		return 1
	}

	fmt.Fprintf(w, "Deleted session %s\n", id)
	return 0
}

// formatSessionsHuman formats the session list for human readability
func formatSessionsHuman(sessions []api.Session) string {
	if len(sessions) == 0 {
		return "No saved conversations. Start one with 'nestling chat'."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-36s  %-19s  %s\n", "ID", "CREATED", "TITLE")
	for _, s := range sessions {
		created := ""
		if !s.CreatedAt.IsZero() {
			created = s.CreatedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, "%-36s  %-19s  %s\n", s.ID, created, s.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatSessionsJSON formats the session list as JSON
func formatSessionsJSON(sessions []api.Session) string {
	data, _ := json.MarshalIndent(sessions, "", "  ")
	return string(data)
}
