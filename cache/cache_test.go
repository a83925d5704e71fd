// ABOUTME: Tests for the month-tracked source cache and the disk snapshot
// ABOUTME: Covers whole-month replacement, fetch tracking, and round-tripping
package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agenda/models"
)

func googleEvent(title, date string) models.Event {
	return models.Event{
		ID:       models.GoogleEventID{CalendarID: "primary", EventID: title},
		Title:    title,
		Date:     date,
		TimeStr:  "09:00",
		Accepted: true,
	}
}

func icloudEvent(title, date string) models.Event {
	return models.Event{
		ID:      models.ICloudEventID{CalendarURL: "/cal/home/", EventUID: title, ETag: `"1"`},
		Title:   title,
		Date:    date,
		TimeStr: models.AllDay,
	}
}

func mustDate(t *testing.T, date string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(models.DateLayout, date, time.Local)
	require.NoError(t, err)
	return d
}

func TestSourceCacheStoreAndGet(t *testing.T) {
	c := NewSourceCache()
	month := mustDate(t, "2025-07-01")

	c.Store([]models.Event{
		googleEvent("standup", "2025-07-14"),
		googleEvent("review", "2025-07-14"),
		googleEvent("offsite", "2025-07-21"),
	}, month)

	assert.Len(t, c.Get(mustDate(t, "2025-07-14")), 2)
	assert.Len(t, c.Get(mustDate(t, "2025-07-21")), 1)
	assert.Empty(t, c.Get(mustDate(t, "2025-07-15")))
	assert.True(t, c.HasEvents(mustDate(t, "2025-07-14")))
	assert.False(t, c.HasEvents(mustDate(t, "2025-07-15")))
}

func TestSourceCacheHasMonth(t *testing.T) {
	c := NewSourceCache()
	if c.HasMonth(mustDate(t, "2025-07-01")) {
		t.Fatal("empty cache should have no fetched months")
	}

	c.Store(nil, mustDate(t, "2025-07-01"))

	// Any day of the month counts, but the neighbor months do not.
	assert.True(t, c.HasMonth(mustDate(t, "2025-07-31")))
	assert.False(t, c.HasMonth(mustDate(t, "2025-06-30")))
	assert.False(t, c.HasMonth(mustDate(t, "2025-08-01")))
}

func TestSourceCacheStoreReplacesMonth(t *testing.T) {
	c := NewSourceCache()
	month := mustDate(t, "2025-07-01")

	c.Store([]models.Event{
		googleEvent("stale", "2025-07-10"),
		googleEvent("kept-next-month", "2025-08-02"),
	}, month)
	c.Store([]models.Event{googleEvent("fresh", "2025-07-11")}, month)

	assert.Empty(t, c.Get(mustDate(t, "2025-07-10")), "stale event should be dropped by re-store")
	require.Len(t, c.Get(mustDate(t, "2025-07-11")), 1)
	assert.Equal(t, "fresh", c.Get(mustDate(t, "2025-07-11"))[0].Title)
	// An event bucketed outside the stored month survives that month's re-store.
	assert.Len(t, c.Get(mustDate(t, "2025-08-02")), 1)
}

func TestSourceCacheClear(t *testing.T) {
	c := NewSourceCache()
	month := mustDate(t, "2025-07-01")
	c.Store([]models.Event{googleEvent("gone", "2025-07-10")}, month)

	c.Clear()

	assert.Empty(t, c.Get(mustDate(t, "2025-07-10")))
	assert.False(t, c.HasMonth(month), "clear must also reset fetched-month tracking")
}

func TestEventCacheHasEventsEitherProvider(t *testing.T) {
	c := New("")
	month := mustDate(t, "2025-07-01")
	c.Google.Store([]models.Event{googleEvent("g", "2025-07-10")}, month)
	c.ICloud.Store([]models.Event{icloudEvent("i", "2025-07-12")}, month)

	assert.True(t, c.HasEvents(mustDate(t, "2025-07-10")))
	assert.True(t, c.HasEvents(mustDate(t, "2025-07-12")))
	assert.False(t, c.HasEvents(mustDate(t, "2025-07-11")))
}

func TestEventCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "events.json")
	month := mustDate(t, "2025-07-01")

	c := New(path)
	c.Google.Store([]models.Event{googleEvent("standup", "2025-07-14")}, month)
	c.ICloud.Store([]models.Event{icloudEvent("birthday", "2025-07-20")}, month)
	c.Save()

	loaded := New(path)
	loaded.Load()

	g := loaded.Google.Get(mustDate(t, "2025-07-14"))
	require.Len(t, g, 1)
	assert.Equal(t, "standup", g[0].Title)
	assert.IsType(t, models.GoogleEventID{}, g[0].ID)

	i := loaded.ICloud.Get(mustDate(t, "2025-07-20"))
	require.Len(t, i, 1)
	assert.Equal(t, models.AllDay, i[0].TimeStr)
	assert.IsType(t, models.ICloudEventID{}, i[0].ID)

	// Restored events must not suppress the next fetch.
	assert.False(t, loaded.Google.HasMonth(month))
	assert.False(t, loaded.ICloud.HasMonth(month))
}

func TestEventCacheLoadCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := New(path)
	c.Load()

	assert.False(t, c.HasEvents(mustDate(t, "2025-07-14")))
}

func TestEventCacheLoadMissingSnapshot(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "absent.json"))
	c.Load()
	assert.False(t, c.HasEvents(mustDate(t, "2025-07-14")))
}
