// Package settings stores the user-supplied credential for the external AI
// service. The value is an opaque string kept in its own slot.
package settings

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/starford/devnotes/internal/storage"
)

// Settings reads and writes the API-key slot.
type Settings struct {
	store storage.Provider
	key   string
}

// New returns settings bound to key in store.
func New(store storage.Provider, key string) *Settings {
	return &Settings{store: store, key: key}
}

// APIKey returns the stored key, or "" when none has been saved.
func (s *Settings) APIKey() (string, error) {
	raw, err := s.store.Get(s.key)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("settings: read api key: %w", err)
	}
	return string(raw), nil
}

// SetAPIKey overwrites the stored key. Surrounding whitespace is dropped.
func (s *Settings) SetAPIKey(key string) error {
	if err := s.store.Put(s.key, []byte(strings.TrimSpace(key))); err != nil {
		return fmt.Errorf("settings: write api key: %w", err)
	}
	return nil
}

// ClearAPIKey removes the stored key.
func (s *Settings) ClearAPIKey() error {
	if err := s.store.Delete(s.key); err != nil {
		return fmt.Errorf("settings: clear api key: %w", err)
	}
	return nil
}

// Mask hides all but the last four characters of key.
func Mask(key string) string {
	if key == "" {
		return ""
	}
	const visible = 4
	if len(key) <= visible {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-visible) + key[len(key)-visible:]
}
