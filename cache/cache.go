// ABOUTME: Per-provider event cache keyed by calendar date with month fetch tracking
// ABOUTME: Store replaces whole months so re-fetches never leave stale events behind
package cache

import (
	"time"

	"github.com/harperreed/agenda/models"
)

const monthLayout = "2006-01"

func monthKey(t time.Time) string {
	return t.Format(monthLayout)
}

// monthOfDate returns the year-month prefix of a DateLayout key.
func monthOfDate(date string) string {
	if len(date) < len(monthLayout) {
		return ""
	}
	return date[:len(monthLayout)]
}

// SourceCache holds the events known for one provider, grouped by local
// calendar date, plus the set of year-months fetched in this process
// lifetime. The fetched-month set is deliberately never persisted: every
// month gets one network re-validation per run even when cached events are
// restored from disk.
type SourceCache struct {
	byDate        map[string][]models.Event
	fetchedMonths map[string]bool
}

func NewSourceCache() *SourceCache {
	return &SourceCache{
		byDate:        make(map[string][]models.Event),
		fetchedMonths: make(map[string]bool),
	}
}

// HasMonth reports whether the month containing t was fetched this run.
func (s *SourceCache) HasMonth(t time.Time) bool {
	return s.fetchedMonths[monthKey(t)]
}

// Store replaces every event previously held for dates in month's year-month
// with the given events, then marks that month fetched. Events are bucketed
// by their own Date field, which may fall outside the query month for events
// straddling the range boundary.
func (s *SourceCache) Store(events []models.Event, month time.Time) {
	key := monthKey(month)
	for date := range s.byDate {
		if monthOfDate(date) == key {
			delete(s.byDate, date)
		}
	}
	for _, ev := range events {
		s.byDate[ev.Date] = append(s.byDate[ev.Date], ev)
	}
	s.fetchedMonths[key] = true
}

// Get returns the events on a date. Absence is an empty slice, never an error.
func (s *SourceCache) Get(date time.Time) []models.Event {
	return s.byDate[models.DateOf(date)]
}

// HasEvents reports whether any event is known for the date.
func (s *SourceCache) HasEvents(date time.Time) bool {
	return len(s.byDate[models.DateOf(date)]) > 0
}

// Invalidate drops the fetched mark for one month so the next scheduling
// pass re-queries it. Cached events stay visible until the fetch lands.
func (s *SourceCache) Invalidate(month time.Time) {
	delete(s.fetchedMonths, monthKey(month))
}

// Clear drops all events and all fetched-month tracking.
func (s *SourceCache) Clear() {
	s.byDate = make(map[string][]models.Event)
	s.fetchedMonths = make(map[string]bool)
}

// loadFrom restores the date index from a disk snapshot. Months are not
// marked fetched so the next navigation still triggers a network refresh.
func (s *SourceCache) loadFrom(data map[string][]models.Event) {
	if data == nil {
		data = make(map[string][]models.Event)
	}
	s.byDate = data
}
