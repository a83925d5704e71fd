// ABOUTME: Persistence for Google tokens and the discovered iCloud calendar list
// ABOUTME: Files are written 0600 next to the config; unreadable files read as absent
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/harperreed/agenda/models"
)

// StoredTokens is the on-disk shape of the Google token material.
type StoredTokens struct {
	Tokens   models.TokenInfo `json:"tokens"`
	StoredAt time.Time        `json:"stored_at"`
}

// StoredCalendars is the on-disk shape of the iCloud calendar list.
type StoredCalendars struct {
	Calendars []models.CalendarEntry `json:"calendars"`
	StoredAt  time.Time              `json:"stored_at"`
}

// TokensPath returns the Google token file location.
func TokensPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appDir, "tokens.json"))
}

// CalendarsPath returns the iCloud calendar list file location.
func CalendarsPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appDir, "icloud.json"))
}

// SaveTokens writes the token material with a fresh stored-at timestamp.
func SaveTokens(path string, tokens models.TokenInfo) error {
	return writeJSON(path, StoredTokens{Tokens: tokens, StoredAt: time.Now()})
}

// LoadTokens reads persisted token material. A missing or unreadable file
// returns (nil, nil): the caller treats that as not authenticated.
func LoadTokens(path string) (*models.TokenInfo, error) {
	var stored StoredTokens
	ok, err := readJSON(path, &stored)
	if err != nil || !ok {
		return nil, err
	}
	if stored.Tokens.AccessToken == "" {
		return nil, nil
	}
	return &stored.Tokens, nil
}

// SaveCalendars writes the discovered calendar list.
func SaveCalendars(path string, calendars []models.CalendarEntry) error {
	return writeJSON(path, StoredCalendars{Calendars: calendars, StoredAt: time.Now()})
}

// LoadCalendars reads the persisted calendar list; absence yields nil, nil.
func LoadCalendars(path string) ([]models.CalendarEntry, error) {
	var stored StoredCalendars
	ok, err := readJSON(path, &stored)
	if err != nil || !ok {
		return nil, err
	}
	return stored.Calendars, nil
}

// DeleteTokens removes the token file; missing is fine.
func DeleteTokens(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating dir for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	// Credentials live in this file, so tighten perms even if the file
	// pre-existed with a wider mode. Best-effort on non-POSIX filesystems.
	_ = os.Chmod(path, 0o600)
	return nil
}

// readJSON reports ok=false for a missing file and decodes otherwise.
// Corrupt JSON also reads as absent: a damaged credential store should send
// the user back through auth, not wedge startup.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, nil
	}
	return true, nil
}
