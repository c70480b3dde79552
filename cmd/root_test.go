// ABOUTME: Tests for the root command and global flag handling
// ABOUTME: Verifies environment variable and flag configuration

package cmd

import (
	"testing"
)

func TestLoadConfig_Default(t *testing.T) {
	t.Setenv("NESTLING_CONFIG_DIR", t.TempDir())
	apiURL = "" // Reset flag

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "https://api.nestling.app" {
		t.Errorf("expected default URL https://api.nestling.app, got %s", cfg.APIBaseURL)
	}
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("NESTLING_CONFIG_DIR", t.TempDir())
	t.Setenv("NESTLING_API_URL", "http://backend.example.com")
	apiURL = "" // Reset flag

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "http://backend.example.com" {
		t.Errorf("expected http://backend.example.com, got %s", cfg.APIBaseURL)
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	t.Setenv("NESTLING_CONFIG_DIR", t.TempDir())
	t.Setenv("NESTLING_API_URL", "http://backend.example.com")
	apiURL = "http://flag-override.example.com"
	defer func() { apiURL = "" }()

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "http://flag-override.example.com" {
		t.Errorf("expected flag to override env, got %s", cfg.APIBaseURL)
	}
}

func TestJSONOutput(t *testing.T) {
	jsonOutput = true
	defer func() { jsonOutput = false }()

	if !IsJSONOutput() {
		t.Error("expected IsJSONOutput to return true")
	}
}

func TestValidateEmail(t *testing.T) {
	if err := validateEmail("mom@example.com"); err != nil {
		t.Errorf("expected valid email, got %v", err)
	}
	if err := validateEmail(""); err == nil {
		t.Error("expected error for empty email")
	}
	if err := validateEmail("not-an-email"); err == nil {
		t.Error("expected error for email without @")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := validatePassword("longenough"); err != nil {
		t.Errorf("expected valid password, got %v", err)
	}
	if err := validatePassword("short"); err == nil {
		t.Error("expected error for short password")
	}
}
