// ABOUTME: Password reset command for the nestling CLI
// ABOUTME: Requests a reset email for an account

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

var resetPasswordCmd = &cobra.Command{
	Use:   "reset-password <email>",
	Short: "Request a password reset email",
	Long:  `Ask the Nestling service to send a password reset link to the given email address.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runResetPassword(ctx, os.Stdout, args[0])
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	rootCmd.AddCommand(resetPasswordCmd)
}

// runResetPassword requests the reset email and returns an exit code
func runResetPassword(ctx context.Context, w io.Writer, email string) int {
	if err := validateEmail(email); err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	if err := client.RequestPasswordReset(ctx, email); err != nil {
		printAPIError(w, err)
		return 1
	}

	fmt.Fprintf(w, "If an account exists for %s, a reset link is on its way\n", email)
	return 0
}
