// ABOUTME: JSON encoding for Event, tagging the EventID union with a provider field
// ABOUTME: Used by the disk cache; unknown provider tags fail decoding
package models

import (
	"encoding/json"
	"fmt"
)

const (
	providerGoogle = "google"
	providerICloud = "icloud"
)

// idEnvelope is the on-disk shape of an EventID. The provider tag selects
// which of the remaining fields are meaningful.
type idEnvelope struct {
	Provider     string `json:"provider"`
	CalendarID   string `json:"calendarId,omitempty"`
	EventID      string `json:"eventId,omitempty"`
	CalendarURL  string `json:"calendarUrl,omitempty"`
	EventUID     string `json:"eventUid,omitempty"`
	ETag         string `json:"etag,omitempty"`
	CalendarName string `json:"calendarName,omitempty"`
}

// eventJSON mirrors Event with the ID flattened into its envelope form.
type eventJSON struct {
	ID          idEnvelope `json:"id"`
	Title       string     `json:"title"`
	Date        string     `json:"date"`
	TimeStr     string     `json:"timeStr"`
	EndTimeStr  string     `json:"endTimeStr,omitempty"`
	Accepted    bool       `json:"accepted"`
	IsOrganizer bool       `json:"isOrganizer"`
	IsFree      bool       `json:"isFree"`
	MeetingURL  string     `json:"meetingUrl,omitempty"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	out := eventJSON{
		Title:       e.Title,
		Date:        e.Date,
		TimeStr:     e.TimeStr,
		EndTimeStr:  e.EndTimeStr,
		Accepted:    e.Accepted,
		IsOrganizer: e.IsOrganizer,
		IsFree:      e.IsFree,
		MeetingURL:  e.MeetingURL,
		Description: e.Description,
		Location:    e.Location,
		Attendees:   e.Attendees,
	}

	switch id := e.ID.(type) {
	case GoogleEventID:
		out.ID = idEnvelope{
			Provider:     providerGoogle,
			CalendarID:   id.CalendarID,
			EventID:      id.EventID,
			CalendarName: id.CalendarName,
		}
	case ICloudEventID:
		out.ID = idEnvelope{
			Provider:     providerICloud,
			CalendarURL:  id.CalendarURL,
			EventUID:     id.EventUID,
			ETag:         id.ETag,
			CalendarName: id.CalendarName,
		}
	default:
		return nil, fmt.Errorf("event %q has no provider id", e.Title)
	}

	return json.Marshal(out)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var in eventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	switch in.ID.Provider {
	case providerGoogle:
		e.ID = GoogleEventID{
			CalendarID:   in.ID.CalendarID,
			EventID:      in.ID.EventID,
			CalendarName: in.ID.CalendarName,
		}
	case providerICloud:
		e.ID = ICloudEventID{
			CalendarURL:  in.ID.CalendarURL,
			EventUID:     in.ID.EventUID,
			ETag:         in.ID.ETag,
			CalendarName: in.ID.CalendarName,
		}
	default:
		return fmt.Errorf("unknown event provider %q", in.ID.Provider)
	}

	e.Title = in.Title
	e.Date = in.Date
	e.TimeStr = in.TimeStr
	e.EndTimeStr = in.EndTimeStr
	e.Accepted = in.Accepted
	e.IsOrganizer = in.IsOrganizer
	e.IsFree = in.IsFree
	e.MeetingURL = in.MeetingURL
	e.Description = in.Description
	e.Location = in.Location
	e.Attendees = in.Attendees
	return nil
}
