// ABOUTME: Entry point for the agenda terminal calendar
// ABOUTME: Loads config and caches, then hands control to the TUI
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/agenda/cache"
	"github.com/harperreed/agenda/config"
	"github.com/harperreed/agenda/reqlog"
	"github.com/harperreed/agenda/tui"
)

const version = "0.1.0"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", "", "Config file path (default: ~/.config/agenda/config.json)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("agenda version %s\n", version)
		os.Exit(0)
	}

	// Route all logging into the in-memory ring: the TUI owns the terminal,
	// and the D overlay shows these lines on demand.
	ring := reqlog.Install(slog.LevelDebug)

	cfgPath := *configPath
	if cfgPath == "" {
		var err error
		cfgPath, err = config.DefaultPath()
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if !cfg.GoogleReady() && !cfg.ICloudReady() {
		fmt.Fprintf(os.Stderr, `No calendar providers configured.

Add credentials to %s:

  {
    "google": {"client_id": "...", "client_secret": "..."},
    "icloud": {"apple_id": "you@icloud.com", "app_password": "xxxx-xxxx-xxxx-xxxx"}
  }

or set GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET / ICLOUD_APPLE_ID /
ICLOUD_APP_PASSWORD in the environment or a .env file.
`, cfgPath)
		os.Exit(1)
	}

	cachePath, err := cache.DefaultPath()
	if err != nil {
		slog.Warn("cache path unavailable, running without persistence", "error", err)
		cachePath = ""
	}
	evCache := cache.New(cachePath)
	evCache.Load()

	tokensPath, err := config.TokensPath()
	if err != nil {
		log.Fatalf("Failed to resolve token path: %v", err)
	}
	calendarsPath, err := config.CalendarsPath()
	if err != nil {
		log.Fatalf("Failed to resolve calendar list path: %v", err)
	}

	model := tui.New(cfg, evCache, ring, tokensPath, calendarsPath)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		log.Fatalf("TUI error: %v", err)
	}

	evCache.Save()
}
