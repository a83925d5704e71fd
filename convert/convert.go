// ABOUTME: Normalization of provider-native events into the shared model
// ABOUTME: Applies local-date bucketing, RSVP defaults, and attendee ordering
package convert

import (
	"sort"
	"strings"
	"time"

	calendar "google.golang.org/api/calendar/v3"

	"github.com/harperreed/agenda/icloud"
	"github.com/harperreed/agenda/models"
)

const clockLayout = "15:04"

// FromGoogle normalizes one Google event. The second return is false for
// events that should not be shown (cancelled, or with an undecodable start).
func FromGoogle(src *calendar.Event, calendarID, calendarName string) (models.Event, bool) {
	if src == nil || src.Status == "cancelled" {
		return models.Event{}, false
	}

	ev := models.Event{
		ID: models.GoogleEventID{
			CalendarID:   calendarID,
			EventID:      src.Id,
			CalendarName: calendarName,
		},
		Title:       src.Summary,
		Accepted:    true,
		IsFree:      strings.EqualFold(src.Transparency, "transparent"),
		Description: src.Description,
		Location:    src.Location,
	}
	if ev.Title == "" {
		ev.Title = "(no title)"
	}

	if !applyGoogleTimes(&ev, src) {
		return models.Event{}, false
	}

	for _, att := range src.Attendees {
		if att.Resource {
			continue
		}
		entry := models.Attendee{
			Name:   att.DisplayName,
			Email:  att.Email,
			Status: googleStatus(att),
		}
		if entry.Name == "" {
			entry.Name = NameFromEmail(att.Email)
		}
		ev.Attendees = append(ev.Attendees, entry)

		if att.Self {
			// Only an explicit accept counts; needsAction and tentative
			// show as not accepted. Organizers and attendees without a
			// response status are treated as accepted.
			ev.Accepted = att.ResponseStatus == "accepted" ||
				att.Organizer ||
				att.ResponseStatus == ""
			if att.Organizer {
				ev.IsOrganizer = true
			}
		}
	}
	if src.Organizer != nil && src.Organizer.Self {
		ev.IsOrganizer = true
	}
	sortAttendees(ev.Attendees)

	ev.MeetingURL = FindMeetingURL(
		src.HangoutLink,
		conferenceVideoURL(src.ConferenceData),
		src.Location,
		src.Description,
	)

	return ev, true
}

// applyGoogleTimes fills Date/TimeStr/EndTimeStr from the event's start and
// end. All-day events carry a date-only start; timed events carry RFC 3339.
func applyGoogleTimes(ev *models.Event, src *calendar.Event) bool {
	if src.Start == nil {
		return false
	}

	switch {
	case src.Start.Date != "":
		ev.Date = src.Start.Date
		ev.TimeStr = models.AllDay
		return true
	case src.Start.DateTime != "":
		start, err := time.Parse(time.RFC3339, src.Start.DateTime)
		if err != nil {
			return false
		}
		local := start.In(time.Local)
		ev.Date = models.DateOf(local)
		ev.TimeStr = local.Format(clockLayout)
		if src.End != nil && src.End.DateTime != "" {
			if end, err := time.Parse(time.RFC3339, src.End.DateTime); err == nil {
				ev.EndTimeStr = end.In(time.Local).Format(clockLayout)
			}
		}
		return true
	default:
		return false
	}
}

func googleStatus(att *calendar.EventAttendee) models.AttendeeStatus {
	if att.Organizer {
		return models.StatusOrganizer
	}
	switch att.ResponseStatus {
	case "accepted":
		return models.StatusAccepted
	case "declined":
		return models.StatusDeclined
	case "tentative":
		return models.StatusTentative
	default:
		return models.StatusNeedsAction
	}
}

func conferenceVideoURL(conf *calendar.ConferenceData) string {
	if conf == nil {
		return ""
	}
	for _, ep := range conf.EntryPoints {
		if ep.EntryPointType == "video" {
			return ep.Uri
		}
	}
	return ""
}

// FromICloud normalizes one CalDAV event record. Records are pre-validated
// by the parser, so there is no failure path.
func FromICloud(rec icloud.EventRecord) models.Event {
	ev := models.Event{
		ID: models.ICloudEventID{
			CalendarURL:  rec.CalendarURL,
			EventUID:     rec.UID,
			ETag:         rec.ETag,
			CalendarName: rec.CalendarName,
		},
		Title:       rec.Summary,
		Date:        models.DateOf(rec.Start.Time),
		Accepted:    rec.Accepted,
		IsFree:      rec.IsFree(),
		Description: rec.Description,
		Location:    rec.Location,
	}

	if rec.Start.AllDay {
		ev.TimeStr = models.AllDay
	} else {
		ev.TimeStr = rec.Start.Time.Format(clockLayout)
		if rec.End != nil && !rec.End.AllDay {
			ev.EndTimeStr = rec.End.Time.Format(clockLayout)
		}
	}

	for _, att := range rec.Attendees {
		entry := models.Attendee{
			Name:   att.Name,
			Email:  att.Email,
			Status: icloudStatus(att),
		}
		if entry.Name == "" {
			entry.Name = NameFromEmail(att.Email)
		}
		ev.Attendees = append(ev.Attendees, entry)
	}
	sortAttendees(ev.Attendees)
	ev.IsOrganizer = rec.IsOrganizer

	ev.MeetingURL = FindMeetingURL(rec.URL, rec.Location, rec.Description)

	return ev
}

func icloudStatus(att icloud.AttendeeRecord) models.AttendeeStatus {
	if att.IsOrganizer {
		return models.StatusOrganizer
	}
	switch strings.ToUpper(att.PartStat) {
	case "ACCEPTED":
		return models.StatusAccepted
	case "DECLINED":
		return models.StatusDeclined
	case "TENTATIVE":
		return models.StatusTentative
	default:
		return models.StatusNeedsAction
	}
}

// sortAttendees orders organizers first, then alphabetically by email.
func sortAttendees(atts []models.Attendee) {
	sort.SliceStable(atts, func(i, j int) bool {
		io, jo := atts[i].Status == models.StatusOrganizer, atts[j].Status == models.StatusOrganizer
		if io != jo {
			return io
		}
		return atts[i].Email < atts[j].Email
	})
}

// NameFromEmail derives a display name from an address: the local part with
// dots and underscores spaced out and words capitalized.
func NameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found || local == "" {
		return email
	}
	words := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
