// ABOUTME: Login command for the nestling CLI
// ABOUTME: Prompts for credentials and stores the issued token pair

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/nestlinghq/nestling-cli/internal/api"
	"github.com/nestlinghq/nestling-cli/internal/prefs"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Nestling",
	Long:  `Sign in with your Nestling account. Credentials can be passed as flags or entered interactively.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		exitCode := runLogin(ctx, os.Stdout)
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password (prompted if omitted)")
	rootCmd.AddCommand(loginCmd)
}

// runLogin signs the user in and returns an exit code
func runLogin(ctx context.Context, w io.Writer) int {
	client, cfg, err := newClient()
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return 2
	}

	email, password := loginEmail, loginPassword
	if email == "" || password == "" {
		if err := promptCredentials(&email, &password); err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return 2
		}
	}

	user, err := client.Login(ctx, email, password)
	if err != nil {
		printAPIError(w, err)
		return 1
	}

	fmt.Fprintf(w, "Signed in as %s (%s)\n", user.FullName, user.Email)
	showOnboardingTips(w, prefs.New(cfg.ConfigDir))
	return 0
}

// showOnboardingTips prints a quick-start block on the first successful
// sign-in on this machine, then records that onboarding is done.
func showOnboardingTips(w io.Writer, manager *prefs.Manager) {
	p, err := manager.Load()
	if err != nil || p.OnboardingComplete {
		return
	}

	fmt.Fprintln(w, `
Quick start:
  nestling chat                 open the interactive chat
  nestling chat "your question" ask a one-shot question
  nestling sessions list        see saved conversations`)

	if err := manager.Update(func(p *prefs.Prefs) { p.OnboardingComplete = true }); err != nil {
		fmt.Fprintf(w, "Warning: could not save preferences: %v\n", err)
	}
}

// promptCredentials fills in whichever of email/password was not
// provided via flags.
func promptCredentials(email, password *string) error {
	var fields []huh.Field
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
			Validate(validateRequired("password")))
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(s, "@") {
		return errors.New("enter a valid email address")
	}
	return nil
}

func validateRequired(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// printAPIError renders an API failure, listing field-level validation
// messages when the server returned them.
func printAPIError(w io.Writer, err error) {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.IsValidation() && len(apiErr.Fields) > 0 {
		fmt.Fprintln(w, "Error: validation failed")
		for field, msg := range apiErr.Fields {
			fmt.Fprintf(w, "  %s: %s\n", field, msg)
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}
