// ABOUTME: Manages local user preferences for the nestling CLI
// ABOUTME: Stores onboarding/setup flags and view choices in the config directory

package prefs

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Prefs holds client-local state with no server-side counterpart.
type Prefs struct {
	OnboardingComplete bool `json:"onboarding_complete"`
}

// Manager reads and writes preferences in the config directory.
type Manager struct {
	configDir string
	loaded    *Prefs
}

// New creates a preferences manager rooted at the given config directory.
func New(configDir string) *Manager {
	return &Manager{configDir: configDir}
}

func (m *Manager) prefsFile() string {
	return filepath.Join(m.configDir, "prefs.json")
}

// Load reads preferences from disk. A missing or invalid file yields
// zero-value prefs rather than an error.
func (m *Manager) Load() (Prefs, error) {
	data, err := os.ReadFile(m.prefsFile())
	if os.IsNotExist(err) {
		m.loaded = &Prefs{}
		return *m.loaded, nil
	}
	if err != nil {
		return Prefs{}, err
	}

	var p Prefs
	if err := json.Unmarshal(data, &p); err != nil {
		// Invalid JSON, start fresh
		m.loaded = &Prefs{}
		return *m.loaded, nil
	}

	m.loaded = &p
	return p, nil
}

// Save writes preferences to disk.
func (m *Manager) Save(p Prefs) error {
	if err := os.MkdirAll(m.configDir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	m.loaded = &p
	return os.WriteFile(m.prefsFile(), data, 0644)
}

// Update loads the current prefs, applies fn, and saves the result.
func (m *Manager) Update(fn func(*Prefs)) error {
	p, err := m.Load()
	if err != nil {
		return err
	}
	fn(&p)
	return m.Save(p)
}
