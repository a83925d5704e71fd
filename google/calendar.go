// ABOUTME: Google Calendar REST client: month listing, RSVP patch, delete
// ABOUTME: Thin wrapper over the calendar/v3 service with token expiry mapping
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/harperreed/agenda/models"
)

// ErrTokenExpired is returned when the API rejects the access token; the
// caller should refresh and retry.
var ErrTokenExpired = errors.New("access token expired")

const maxResultsPerPage = 250

// CalendarClient wraps an authenticated calendar/v3 service.
type CalendarClient struct {
	svc    *calendar.Service
	logger *slog.Logger
}

// NewCalendarClient builds a client authenticated with the given access
// token. Extra options are applied after the defaults, so tests can point the
// service at a fake endpoint.
func NewCalendarClient(ctx context.Context, accessToken string, logger *slog.Logger, extra ...option.ClientOption) (*CalendarClient, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}, extra...)

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return &CalendarClient{svc: svc, logger: logger}, nil
}

// ListMonth returns every event instance in the month containing the given
// time, recurrences expanded, ordered by start.
func (c *CalendarClient) ListMonth(ctx context.Context, calendarID string, month time.Time) ([]*calendar.Event, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return c.ListEvents(ctx, calendarID, start, end)
}

// ListEvents pages through the events in [start, end).
func (c *CalendarClient) ListEvents(ctx context.Context, calendarID string, start, end time.Time) ([]*calendar.Event, error) {
	var events []*calendar.Event
	pageToken := ""
	for {
		c.logger.Info("calendar request", "method", "GET", "calendar", calendarID, "page", pageToken != "")
		call := c.svc.Events.List(calendarID).
			TimeMin(start.Format(time.RFC3339)).
			TimeMax(end.Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(maxResultsPerPage).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		page, err := call.Do()
		if err != nil {
			return nil, mapAPIError("listing events", err)
		}
		events = append(events, page.Items...)
		if page.NextPageToken == "" {
			return events, nil
		}
		pageToken = page.NextPageToken
	}
}

// CalendarName returns the display name of a calendar.
func (c *CalendarClient) CalendarName(ctx context.Context, calendarID string) (string, error) {
	entry, err := c.svc.CalendarList.Get(calendarID).Context(ctx).Do()
	if err != nil {
		return "", mapAPIError("reading calendar metadata", err)
	}
	if entry.SummaryOverride != "" {
		return entry.SummaryOverride, nil
	}
	return entry.Summary, nil
}

// Respond sets the signed-in user's RSVP on an event. The full attendee list
// is read, the self entry is modified, and only the attendee list is patched
// back, so other fields are untouched.
func (c *CalendarClient) Respond(ctx context.Context, id models.GoogleEventID, status models.AttendeeStatus) error {
	if status != models.StatusAccepted && status != models.StatusDeclined {
		return fmt.Errorf("unsupported response status %q", status)
	}

	event, err := c.svc.Events.Get(id.CalendarID, id.EventID).Context(ctx).Do()
	if err != nil {
		return mapAPIError("reading event", err)
	}

	found := false
	for _, att := range event.Attendees {
		if att.Self {
			att.ResponseStatus = string(status)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("event %s has no attendee entry for this account", id.EventID)
	}

	patch := &calendar.Event{Attendees: event.Attendees}
	c.logger.Info("calendar request", "method", "PATCH", "event", id.EventID, "status", string(status))
	if _, err := c.svc.Events.Patch(id.CalendarID, id.EventID, patch).Context(ctx).Do(); err != nil {
		return mapAPIError("updating response", err)
	}
	return nil
}

// DeleteEvent removes an event. A 404 or 410 means it is already gone and
// counts as success.
func (c *CalendarClient) DeleteEvent(ctx context.Context, id models.GoogleEventID) error {
	c.logger.Info("calendar request", "method", "DELETE", "event", id.EventID)
	err := c.svc.Events.Delete(id.CalendarID, id.EventID).Context(ctx).Do()
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
		return nil
	}
	return mapAPIError("deleting event", err)
}

// mapAPIError folds 401 responses into ErrTokenExpired and wraps the rest.
func mapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}
	return fmt.Errorf("%s: %w", op, err)
}
