// ABOUTME: Tests for the event model's JSON envelope and token expiry checks
// ABOUTME: Exercises both EventID variants and the expiry safety buffer
package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONRoundTripGoogle(t *testing.T) {
	in := Event{
		ID:          GoogleEventID{CalendarID: "primary", EventID: "abc123", CalendarName: "Work"},
		Title:       "Standup",
		Date:        "2025-07-14",
		TimeStr:     "09:00",
		EndTimeStr:  "09:15",
		Accepted:    true,
		IsOrganizer: true,
		MeetingURL:  "https://meet.google.com/abc-defg-hij",
		Attendees: []Attendee{
			{Name: "Ada", Email: "ada@example.com", Status: StatusOrganizer},
			{Email: "bob@example.com", Status: StatusNeedsAction},
		},
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Event
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)

	id, ok := out.ID.(GoogleEventID)
	require.True(t, ok)
	assert.Equal(t, "Work", id.CalendarLabel())
}

func TestEventJSONRoundTripICloud(t *testing.T) {
	in := Event{
		ID: ICloudEventID{
			CalendarURL:  "https://caldav.icloud.com/123/calendars/home/",
			EventUID:     "uid-1",
			ETag:         `"42"`,
			CalendarName: "Home",
		},
		Title:   "Birthday",
		Date:    "2025-07-20",
		TimeStr: AllDay,
	}

	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Event
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestEventJSONRejectsUnknownProvider(t *testing.T) {
	var out Event
	err := json.Unmarshal([]byte(`{"id":{"provider":"outlook"},"title":"x","date":"2025-07-14","timeStr":"09:00"}`), &out)
	assert.Error(t, err)
}

func TestEventJSONRejectsMissingID(t *testing.T) {
	_, err := json.Marshal(Event{Title: "no id"})
	assert.Error(t, err)
}

func TestTokenIsExpired(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		want      bool
	}{
		{"well in the future", time.Now().Add(time.Hour), false},
		{"inside the safety buffer", time.Now().Add(2 * time.Minute), true},
		{"already past", time.Now().Add(-time.Minute), true},
		{"zero value", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := TokenInfo{AccessToken: "a", ExpiresAt: tt.expiresAt}
			assert.Equal(t, tt.want, tok.IsExpired())
		})
	}
}

func TestDateOf(t *testing.T) {
	d := time.Date(2025, 7, 14, 23, 30, 0, 0, time.Local)
	assert.Equal(t, "2025-07-14", DateOf(d))
}
