// ABOUTME: Application configuration loaded from config.json with env overrides
// ABOUTME: Each provider section is optional; a missing one disables that provider
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

const appDir = "agenda"

// GoogleConfig is the OAuth client material for the Google provider.
type GoogleConfig struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	CalendarID   string `json:"calendar_id,omitempty"`
}

// ICloudConfig is the CalDAV credential set for the iCloud provider.
// AppPassword is an app-specific password, not the account password.
type ICloudConfig struct {
	AppleID     string `json:"apple_id"`
	AppPassword string `json:"app_password"`
	ServerURL   string `json:"server_url,omitempty"`
}

// Config is the full application configuration.
type Config struct {
	Google *GoogleConfig `json:"google,omitempty"`
	ICloud *ICloudConfig `json:"icloud,omitempty"`
}

// DefaultPath returns the config file location under the user's config dir.
func DefaultPath() (string, error) {
	return xdg.ConfigFile(filepath.Join(appDir, "config.json"))
}

// Load reads the config file at path, then applies environment overrides.
// A missing file is not an error: env vars alone can configure a provider.
// Any .env file in the working directory is loaded first.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays credentials from the environment. Setting both vars of a
// provider creates its section if the file omitted it.
func (c *Config) applyEnv() {
	if id, secret := os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"); id != "" || secret != "" {
		if c.Google == nil {
			c.Google = &GoogleConfig{}
		}
		if id != "" {
			c.Google.ClientID = id
		}
		if secret != "" {
			c.Google.ClientSecret = secret
		}
	}
	if apple, pass := os.Getenv("ICLOUD_APPLE_ID"), os.Getenv("ICLOUD_APP_PASSWORD"); apple != "" || pass != "" {
		if c.ICloud == nil {
			c.ICloud = &ICloudConfig{}
		}
		if apple != "" {
			c.ICloud.AppleID = apple
		}
		if pass != "" {
			c.ICloud.AppPassword = pass
		}
	}
}

// GoogleReady reports whether the Google section carries usable credentials.
func (c *Config) GoogleReady() bool {
	return c.Google != nil && c.Google.ClientID != "" && c.Google.ClientSecret != ""
}

// ICloudReady reports whether the iCloud section carries usable credentials.
func (c *Config) ICloudReady() bool {
	return c.ICloud != nil && c.ICloud.AppleID != "" && c.ICloud.AppPassword != ""
}

// GoogleCalendarID returns the configured calendar, defaulting to primary.
func (c *Config) GoogleCalendarID() string {
	if c.Google != nil && c.Google.CalendarID != "" {
		return c.Google.CalendarID
	}
	return "primary"
}

// ICloudServerURL returns the CalDAV base URL, defaulting to Apple's server.
func (c *Config) ICloudServerURL() string {
	if c.ICloud != nil && c.ICloud.ServerURL != "" {
		return c.ICloud.ServerURL
	}
	return "https://caldav.icloud.com"
}
