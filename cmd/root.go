// ABOUTME: Root command for the nestling CLI
// ABOUTME: Handles global flags, configuration, and client construction

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nestlinghq/nestling-cli/internal/api"
	"github.com/nestlinghq/nestling-cli/internal/config"
	"github.com/nestlinghq/nestling-cli/internal/logger"
	"github.com/nestlinghq/nestling-cli/internal/tokenstore"
)

var (
	apiURL     string
	jsonOutput bool
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "nestling",
	Short: "CLI for the Nestling assistant",
	Long: `nestling is a command-line companion for new and expecting parents.

Sign in once, then chat with the assistant or manage your saved conversations.

Environment Variables:
  NESTLING_API_URL          Backend API URL (default: https://api.nestling.app)
  NESTLING_REQUEST_TIMEOUT  Per-request timeout in seconds (default: 30)
  NESTLING_CONFIG_DIR       Where credentials are stored (default: ~/.config/nestling)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides NESTLING_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig reads env-based configuration and applies the --api-url
// override on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	return cfg, nil
}

// newClient builds an authenticated API client from configuration.
// Logging is initialized here so every command gets the same sink.
func newClient() (*api.Client, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if err := logger.Init(cfg.LogLevel, cfg.LogFormat, cfg.LogFile); err != nil {
		return nil, nil, fmt.Errorf("initializing logger: %w", err)
	}

	tokens := tokenstore.New(cfg.ConfigDir)
	return api.New(cfg.APIBaseURL, tokens, cfg.RequestTimeout), cfg, nil
}
