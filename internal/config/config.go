// ABOUTME: Configuration loader for the nestling CLI
// ABOUTME: Loads settings from environment variables with defaults, .env supported

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAPIBaseURL = "https://api.nestling.app"

type Config struct {
	// Backend
	APIBaseURL     string        // base URL of the Nestling API
	RequestTimeout time.Duration // per-request timeout for non-streaming calls

	// Local state
	ConfigDir string // where credentials and prefs are persisted

	// Logging
	LogLevel  string // debug, info, warn, error (default: info)
	LogFormat string // text, json (default: text)
	LogFile   string // if set, logs go to this file instead of stderr
}

// Load reads configuration from the environment. A .env file in the
// working directory is applied first if present; real environment
// variables take precedence over it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		APIBaseURL:     strings.TrimRight(getEnv("NESTLING_API_URL", defaultAPIBaseURL), "/"),
		RequestTimeout: time.Duration(getEnvInt("NESTLING_REQUEST_TIMEOUT", 30)) * time.Second,
		ConfigDir:      getEnv("NESTLING_CONFIG_DIR", DefaultConfigDir()),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		LogFile:        os.Getenv("LOG_FILE"),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("NESTLING_API_URL must not be empty")
	}
	if cfg.RequestTimeout <= 0 {
		return nil, fmt.Errorf("NESTLING_REQUEST_TIMEOUT must be positive")
	}

	return cfg, nil
}

// DefaultConfigDir returns the default config directory following XDG spec
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "nestling")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "nestling")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
