// ABOUTME: Whoami command for the nestling CLI
// ABOUTME: Shows the signed-in user's profile

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nestlinghq/nestling-cli/internal/api"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in account",
	Long:  `Display the profile of the currently signed-in Nestling account.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runWhoami(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}

// runWhoami prints the current profile and returns an exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	user, err := client.Profile(ctx)
	if err != nil {
		printAPIError(w, err)
		return 1
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatUserJSON(user))
	} else {
		fmt.Fprintln(w, formatUserHuman(user))
	}
	return 0
}

// formatUserHuman formats a profile for human readability
func formatUserHuman(user *api.User) string {
	return fmt.Sprintf(`Name:    %s
Email:   %s
Joined:  %s`,
		user.FullName,
		user.Email,
		user.CreatedAt.Format("Jan 2, 2006"))
}

// formatUserJSON formats a profile as JSON
func formatUserJSON(user *api.User) string {
	data, _ := json.MarshalIndent(user, "", "  ")
	return string(data)
}
