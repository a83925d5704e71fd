// ABOUTME: Disk snapshot of the event cache as one JSON file under the XDG cache dir
// ABOUTME: Load and save are best-effort; corrupt or missing snapshots start empty
package cache

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/harperreed/agenda/models"
)

const cacheFileName = "events.json"

// EventCache is the pair of per-provider caches plus the snapshot path.
type EventCache struct {
	Google *SourceCache
	ICloud *SourceCache

	path string
}

// diskSnapshot is the persisted shape. Fetched-month tracking is intentionally
// absent: a restored cache renders immediately but still re-fetches.
type diskSnapshot struct {
	Google map[string][]models.Event `json:"google"`
	ICloud map[string][]models.Event `json:"icloud"`
}

// New returns an empty cache that snapshots to the given path. An empty path
// disables persistence.
func New(path string) *EventCache {
	return &EventCache{
		Google: NewSourceCache(),
		ICloud: NewSourceCache(),
		path:   path,
	}
}

// DefaultPath returns the snapshot location under the user's cache directory.
func DefaultPath() (string, error) {
	return xdg.CacheFile(filepath.Join("agenda", cacheFileName))
}

// HasEvents reports whether either provider has an event on the date.
func (c *EventCache) HasEvents(date time.Time) bool {
	return c.Google.HasEvents(date) || c.ICloud.HasEvents(date)
}

// Clear empties both providers, including fetched-month tracking.
func (c *EventCache) Clear() {
	c.Google.Clear()
	c.ICloud.Clear()
}

// Load restores the snapshot from disk. A missing or unreadable snapshot
// leaves the cache empty; the error is logged, never surfaced, because a
// stale cache is cosmetic and the app re-fetches regardless.
func (c *EventCache) Load() {
	if c.path == "" {
		return
	}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("event cache unreadable, starting empty", "path", c.path, "error", err)
		}
		return
	}
	var snap diskSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		slog.Warn("event cache corrupt, starting empty", "path", c.path, "error", err)
		return
	}
	c.Google.loadFrom(snap.Google)
	c.ICloud.loadFrom(snap.ICloud)
}

// Save writes the snapshot to disk, creating parent directories as needed.
// Failures are logged and swallowed so shutdown never blocks on the cache.
func (c *EventCache) Save() {
	if c.path == "" {
		return
	}
	snap := diskSnapshot{
		Google: c.Google.byDate,
		ICloud: c.ICloud.byDate,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		slog.Warn("event cache encode failed", "error", err)
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		slog.Warn("event cache dir create failed", "path", c.path, "error", err)
		return
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		slog.Warn("event cache write failed", "path", c.path, "error", err)
	}
}
