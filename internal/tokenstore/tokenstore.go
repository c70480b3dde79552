// ABOUTME: Persists the access/refresh token pair in the config directory
// ABOUTME: Credentials file is written with owner-only permissions

package tokenstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoTokens indicates no credentials are persisted (logged out).
var ErrNoTokens = errors.New("no stored tokens")

// Tokens is the access/refresh pair issued at login and rotated on refresh.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Store reads and writes the token pair. Safe for concurrent use: a
// refresh triggered by one request may race a logout from the UI, so
// all file access goes through a single mutex.
type Store struct {
	mu        sync.Mutex
	configDir string
}

// New creates a token store rooted at the given config directory.
func New(configDir string) *Store {
	return &Store{configDir: configDir}
}

func (s *Store) credentialsFile() string {
	return filepath.Join(s.configDir, "credentials.json")
}

// Load reads the persisted token pair. Returns ErrNoTokens when the
// credentials file is absent or unreadable as JSON.
func (s *Store) Load() (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.credentialsFile())
	if os.IsNotExist(err) {
		return Tokens{}, ErrNoTokens
	}
	if err != nil {
		return Tokens{}, err
	}

	var t Tokens
	if err := json.Unmarshal(data, &t); err != nil {
		return Tokens{}, ErrNoTokens
	}
	if t.AccessToken == "" {
		return Tokens{}, ErrNoTokens
	}
	return t, nil
}

// Save persists a new token pair, replacing any previous one.
func (s *Store) Save(t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(s.credentialsFile(), data, 0600)
}

// Clear removes the persisted pair. Missing file is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.credentialsFile())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
