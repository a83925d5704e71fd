// ABOUTME: Extraction of event records from CalDAV calendar-data payloads
// ABOUTME: Wraps go-ical decoding with the app's required-field and time rules
package icloud

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// EventTime is a decoded DTSTART/DTEND value. All-day values carry a date at
// local midnight; timed values are already converted to the local zone.
type EventTime struct {
	Time   time.Time
	AllDay bool
}

// AttendeeRecord is one ATTENDEE or ORGANIZER line of a VEVENT.
type AttendeeRecord struct {
	Name        string
	Email       string
	PartStat    string
	IsOrganizer bool
}

// EventRecord is one VEVENT pulled from a calendar resource, annotated with
// the resource's location on the server so it can be deleted later.
type EventRecord struct {
	UID         string
	Summary     string
	Start       EventTime
	End         *EventTime
	Location    string
	Description string
	URL         string
	Transp      string
	Accepted    bool
	IsOrganizer bool
	Attendees   []AttendeeRecord

	CalendarURL  string
	ETag         string
	CalendarName string
}

// IsFree reports whether the event is marked time-transparent.
func (r EventRecord) IsFree() bool {
	return strings.EqualFold(r.Transp, "TRANSPARENT")
}

// parseCalendarData decodes one calendar-data payload into event records.
// VEVENTs without a UID or a decodable DTSTART are skipped, not errors: one
// malformed component must not sink its siblings.
func parseCalendarData(data, calendarURL, calendarName, etag string) ([]EventRecord, error) {
	cal, err := ical.NewDecoder(strings.NewReader(data)).Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding calendar data: %w", err)
	}

	var records []EventRecord
	for _, evt := range cal.Events() {
		rec, ok := extractEvent(evt)
		if !ok {
			continue
		}
		rec.CalendarURL = calendarURL
		rec.CalendarName = calendarName
		rec.ETag = etag
		records = append(records, rec)
	}
	return records, nil
}

func extractEvent(evt ical.Event) (EventRecord, bool) {
	uid, err := evt.Props.Text(ical.PropUID)
	if err != nil || uid == "" {
		return EventRecord{}, false
	}

	startProp := evt.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return EventRecord{}, false
	}
	start, err := decodeEventTime(startProp)
	if err != nil {
		return EventRecord{}, false
	}

	rec := EventRecord{
		UID:      uid,
		Start:    start,
		Accepted: true,
	}

	if summary, err := evt.Props.Text(ical.PropSummary); err == nil {
		rec.Summary = summary
	}
	if rec.Summary == "" {
		rec.Summary = "(no title)"
	}
	if endProp := evt.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		if end, err := decodeEventTime(endProp); err == nil {
			rec.End = &end
		}
	}
	if loc, err := evt.Props.Text(ical.PropLocation); err == nil {
		rec.Location = loc
	}
	if desc, err := evt.Props.Text(ical.PropDescription); err == nil {
		rec.Description = desc
	}
	if urlProp := evt.Props.Get("URL"); urlProp != nil {
		rec.URL = urlProp.Value
	}
	if transp := evt.Props.Get("TRANSP"); transp != nil {
		rec.Transp = transp.Value
	}

	var organizerEmail string
	if org := evt.Props.Get(ical.PropOrganizer); org != nil {
		organizerEmail = stripMailto(org.Value)
		rec.Attendees = append(rec.Attendees, AttendeeRecord{
			Name:        org.Params.Get("CN"),
			Email:       organizerEmail,
			PartStat:    "ACCEPTED",
			IsOrganizer: true,
		})
		if strings.EqualFold(org.Params.Get("X-IS-ME"), "TRUE") {
			rec.IsOrganizer = true
		}
	}

	for _, prop := range evt.Props.Values(ical.PropAttendee) {
		att := AttendeeRecord{
			Name:     prop.Params.Get("CN"),
			Email:    stripMailto(prop.Value),
			PartStat: prop.Params.Get("PARTSTAT"),
		}
		if att.PartStat == "" {
			att.PartStat = "NEEDS-ACTION"
		}
		rec.Attendees = append(rec.Attendees, att)

		// The attendee marked as the account owner decides whether the
		// event shows as accepted: only an explicit ACCEPTED counts.
		// Without such a marker the event is assumed accepted
		// (self-created events carry no attendees).
		if strings.EqualFold(prop.Params.Get("X-IS-ME"), "TRUE") {
			rec.Accepted = strings.EqualFold(att.PartStat, "ACCEPTED")
			if organizerEmail != "" && strings.EqualFold(att.Email, organizerEmail) {
				rec.IsOrganizer = true
			}
		}
	}

	return rec, true
}

const (
	dateValueLayout     = "20060102"
	dateTimeValueLayout = "20060102T150405"
)

// decodeEventTime handles the three shapes CalDAV servers emit: VALUE=DATE
// dates, full date-times (UTC when suffixed with Z, else floating or TZID
// local), and bare 8-character dates missing the VALUE parameter.
func decodeEventTime(prop *ical.Prop) (EventTime, error) {
	value := strings.TrimSpace(prop.Value)

	if prop.Params.Get("VALUE") == "DATE" || len(value) == len(dateValueLayout) {
		t, err := time.ParseInLocation(dateValueLayout, value, time.Local)
		if err != nil {
			return EventTime{}, fmt.Errorf("bad date value %q: %w", value, err)
		}
		return EventTime{Time: t, AllDay: true}, nil
	}

	if len(value) < len(dateTimeValueLayout) {
		// Some servers emit date values with trailing junk; salvage the
		// leading YYYYMMDD when it is there.
		if len(value) >= len(dateValueLayout) {
			t, err := time.ParseInLocation(dateValueLayout, value[:len(dateValueLayout)], time.Local)
			if err != nil {
				return EventTime{}, fmt.Errorf("bad date value %q: %w", value, err)
			}
			return EventTime{Time: t, AllDay: true}, nil
		}
		return EventTime{}, fmt.Errorf("unrecognized date-time value %q", value)
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse(dateTimeValueLayout+"Z07:00", value[:len(dateTimeValueLayout)]+"Z")
		if err != nil {
			return EventTime{}, fmt.Errorf("bad utc date-time %q: %w", value, err)
		}
		return EventTime{Time: t.In(time.Local)}, nil
	}

	loc := time.Local
	if tzid := prop.Params.Get("TZID"); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(dateTimeValueLayout, value[:len(dateTimeValueLayout)], loc)
	if err != nil {
		return EventTime{}, fmt.Errorf("bad date-time %q: %w", value, err)
	}
	return EventTime{Time: t.In(time.Local)}, nil
}

func stripMailto(value string) string {
	if rest, ok := strings.CutPrefix(strings.TrimSpace(value), "mailto:"); ok {
		return rest
	}
	return strings.TrimSpace(value)
}
