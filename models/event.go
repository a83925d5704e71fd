// ABOUTME: Canonical event model shared by both calendar providers
// ABOUTME: Defines Event, the EventID sum type, attendees, and date helpers
package models

import "time"

// DateLayout is the calendar-date key format used throughout the app.
const DateLayout = "2006-01-02"

// AllDay is the sentinel time string for events without a start time.
const AllDay = "All day"

// DateOf returns the calendar-date key for a point in time.
func DateOf(t time.Time) string {
	return t.Format(DateLayout)
}

// AttendeeStatus is an attendee's response to an invitation.
type AttendeeStatus string

const (
	StatusAccepted    AttendeeStatus = "accepted"
	StatusDeclined    AttendeeStatus = "declined"
	StatusTentative   AttendeeStatus = "tentative"
	StatusNeedsAction AttendeeStatus = "needsAction"
	StatusOrganizer   AttendeeStatus = "organizer"
)

// Attendee is one participant of an event.
type Attendee struct {
	Name   string         `json:"name,omitempty"`
	Email  string         `json:"email"`
	Status AttendeeStatus `json:"status"`
}

// EventID identifies an event on its provider. It is a closed sum: exactly
// GoogleEventID and ICloudEventID implement it, and callers type-switch to
// pick the mutations that are legal for each provider (only Google events
// support accept/decline).
type EventID interface {
	isEventID()
	// CalendarLabel returns the display name of the owning calendar, if known.
	CalendarLabel() string
}

// GoogleEventID addresses an event in the Google Calendar REST API.
type GoogleEventID struct {
	CalendarID   string
	EventID      string
	CalendarName string
}

func (GoogleEventID) isEventID()               {}
func (id GoogleEventID) CalendarLabel() string { return id.CalendarName }

// ICloudEventID addresses an event resource on a CalDAV server. ETag may be
// empty when the server did not report one; deletes then skip the If-Match
// precondition.
type ICloudEventID struct {
	CalendarURL  string
	EventUID     string
	ETag         string
	CalendarName string
}

func (ICloudEventID) isEventID()               {}
func (id ICloudEventID) CalendarLabel() string { return id.CalendarName }

// Event is the normalized representation stored in the cache and rendered by
// the TUI. Date is the local calendar date the event is bucketed under; a
// timed event started in UTC is bucketed by its local date, not its UTC date.
type Event struct {
	ID          EventID
	Title       string
	Date        string // DateLayout
	TimeStr     string // AllDay or local HH:MM
	EndTimeStr  string
	Accepted    bool
	IsOrganizer bool
	IsFree      bool
	MeetingURL  string
	Description string
	Location    string
	Attendees   []Attendee
}

// CalendarEntry describes one discovered CalDAV calendar collection.
type CalendarEntry struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}
