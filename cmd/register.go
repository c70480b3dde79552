// ABOUTME: Register command for the nestling CLI
// ABOUTME: Creates a new account and signs the user in

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

var (
	registerEmail    string
	registerPassword string
	registerFullName string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a Nestling account",
	Long:  `Create a new Nestling account. You are signed in immediately after registration.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runRegister(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerPassword, "password", "", "Account password (prompted if omitted)")
	registerCmd.Flags().StringVar(&registerFullName, "name", "", "Your full name")
	rootCmd.AddCommand(registerCmd)
}

// runRegister creates the account and returns an exit code
func runRegister(ctx context.Context, w io.Writer) int {
	client, _, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	email, password, fullName := registerEmail, registerPassword, registerFullName
	if email == "" || password == "" || fullName == "" {
		if err := promptRegistration(&email, &password, &fullName); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
	}

	user, err := client.Register(ctx, email, password, fullName)
	if err != nil {
		printAPIError(w, err)
		return 1
	}

	fmt.Fprintf(w, "Welcome, %s! You are signed in as %s\n", user.FullName, user.Email)
	return 0
}

func promptRegistration(email, password, fullName *string) error {
	var fields []huh.Field
	if *fullName == "" {
		fields = append(fields, huh.NewInput().
			Title("Full name").
			Value(fullName).
			Validate(validateRequired("name")))
	}
	if *email == "" {
		fields = append(fields, huh.NewInput().
			Title("Email").
			Value(email).
			Validate(validateEmail))
	}
	if *password == "" {
		fields = append(fields, huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(password).
			Validate(validatePassword))
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func validatePassword(s string) error {
	if len(s) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
