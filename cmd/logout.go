// ABOUTME: Logout command for the nestling CLI
// ABOUTME: Revokes the refresh token server-side and clears local credentials

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out of Nestling",
	Long:  `Revoke the current session and remove locally stored credentials. Local credentials are removed even if the server cannot be reached.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogout(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}

// runLogout signs the user out and returns an exit code
func runLogout(ctx context.Context, w io.Writer) int {
	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if err := client.Logout(ctx); err != nil {
		fmt.Fprintf(w, "Error: could not remove stored credentials: %v\n", err)
		return 1
	}

	fmt.Fprintln(w, "Signed out")
	return 0
}
