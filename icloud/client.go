// ABOUTME: CalDAV client for iCloud: discovery, month queries, conditional delete
// ABOUTME: Discovery uses go-webdav; REPORT and DELETE go over the same client raw
package icloud

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/harperreed/agenda/models"
)

var (
	// ErrDiscovery marks failures while locating the account's calendars.
	ErrDiscovery = errors.New("calendar discovery failed")
	// ErrDelete marks failures while deleting an event resource.
	ErrDelete = errors.New("event delete failed")
)

// Client talks to a CalDAV server with HTTP Basic auth (for iCloud, an
// app-specific password).
type Client struct {
	http    webdav.HTTPClient
	dav     *caldav.Client
	baseURL *url.URL
	logger  *slog.Logger
}

// NewClient builds a client for the server at serverURL.
func NewClient(serverURL, appleID, appPassword string, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url %q: %w", serverURL, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := webdav.HTTPClientWithBasicAuth(&http.Client{Timeout: 30 * time.Second}, appleID, appPassword)
	davClient, err := caldav.NewClient(httpClient, serverURL)
	if err != nil {
		return nil, fmt.Errorf("creating caldav client: %w", err)
	}

	return &Client{
		http:    httpClient,
		dav:     davClient,
		baseURL: base,
		logger:  logger,
	}, nil
}

// DiscoverCalendars walks the standard CalDAV chain: current-user-principal,
// then calendar-home-set, then the calendar collections under it. Collections
// that cannot hold VEVENTs are skipped. An empty result is an error so the
// caller surfaces it instead of silently syncing nothing.
func (c *Client) DiscoverCalendars(ctx context.Context) ([]models.CalendarEntry, error) {
	c.logger.Info("caldav discovery", "server", c.baseURL.String())

	principal, err := c.dav.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: finding principal: %s", ErrDiscovery, err)
	}

	homeSet, err := c.dav.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("%w: finding calendar home set: %s", ErrDiscovery, err)
	}

	calendars, err := c.dav.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("%w: listing calendars: %s", ErrDiscovery, err)
	}

	var entries []models.CalendarEntry
	for _, cal := range calendars {
		if !supportsEvents(cal) {
			continue
		}
		entries = append(entries, models.CalendarEntry{
			URL:  c.absoluteURL(cal.Path),
			Name: cal.Name,
		})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no calendars found", ErrDiscovery)
	}

	c.logger.Info("caldav discovery done", "calendars", len(entries))
	return entries, nil
}

func supportsEvents(cal caldav.Calendar) bool {
	if len(cal.SupportedComponentSet) == 0 {
		return true
	}
	for _, comp := range cal.SupportedComponentSet {
		if comp == "VEVENT" {
			return true
		}
	}
	return false
}

// absoluteURL resolves a server-relative path against the base URL.
func (c *Client) absoluteURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return c.baseURL.ResolveReference(ref).String()
}

// FetchMonth queries every calendar for the month containing the given time.
// Calendars fail independently: one broken calendar yields partial results
// plus a joined error, never an empty month.
func (c *Client) FetchMonth(ctx context.Context, calendars []models.CalendarEntry, month time.Time) ([]EventRecord, error) {
	start := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Second)

	var records []EventRecord
	var errs []error
	for _, cal := range calendars {
		recs, err := c.FetchEvents(ctx, cal.URL, cal.Name, start, end)
		if err != nil {
			c.logger.Warn("calendar fetch failed", "calendar", cal.URL, "error", err)
			errs = append(errs, fmt.Errorf("calendar %s: %w", cal.Name, err))
			continue
		}
		records = append(records, recs...)
	}
	return records, errors.Join(errs...)
}

const timeRangeLayout = "20060102T150405Z"

// FetchEvents issues a REPORT calendar-query for VEVENTs in [start, end] on
// one calendar collection and parses each returned resource. Resources whose
// calendar data fails to decode are skipped.
func (c *Client) FetchEvents(ctx context.Context, calendarURL, calendarName string, start, end time.Time) ([]EventRecord, error) {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<c:calendar-query xmlns:d="DAV:" xmlns:c="urn:ietf:params:xml:ns:caldav">
  <d:prop>
    <d:getetag/>
    <c:calendar-data/>
  </d:prop>
  <c:filter>
    <c:comp-filter name="VCALENDAR">
      <c:comp-filter name="VEVENT">
        <c:time-range start="%s" end="%s"/>
      </c:comp-filter>
    </c:comp-filter>
  </c:filter>
</c:calendar-query>`, start.UTC().Format(timeRangeLayout), end.UTC().Format(timeRangeLayout))

	req, err := http.NewRequestWithContext(ctx, "REPORT", calendarURL, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building calendar query: %w", err)
	}
	req.Header.Set("Content-Type", `application/xml; charset="utf-8"`)
	req.Header.Set("Depth", "1")

	c.logger.Info("caldav request", "method", "REPORT", "url", calendarURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendar query: %w", err)
	}
	defer resp.Body.Close()
	c.logger.Info("caldav response", "status", resp.StatusCode, "url", calendarURL)

	if resp.StatusCode != http.StatusMultiStatus {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("calendar query returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var ms multistatus
	if err := xml.NewDecoder(resp.Body).Decode(&ms); err != nil {
		return nil, fmt.Errorf("parsing multistatus: %w", err)
	}

	var records []EventRecord
	for _, r := range ms.Responses {
		data, etag := r.calendarData()
		if data == "" {
			continue
		}
		recs, err := parseCalendarData(data, calendarURL, calendarName, etag)
		if err != nil {
			c.logger.Warn("skipping unparsable resource", "href", r.Href, "error", err)
			continue
		}
		records = append(records, recs...)
	}
	return records, nil
}

// DeleteEvent removes the resource behind an event ID. The etag, when known,
// guards against deleting a concurrently modified event. 404 and 410 count
// as success: the event is gone either way.
func (c *Client) DeleteEvent(ctx context.Context, id models.ICloudEventID) error {
	target := strings.TrimSuffix(id.CalendarURL, "/") + "/" + url.PathEscape(id.EventUID) + ".ics"

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("%w: building request: %s", ErrDelete, err)
	}
	if id.ETag != "" {
		req.Header.Set("If-Match", id.ETag)
	}

	c.logger.Info("caldav request", "method", "DELETE", "url", target)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDelete, err)
	}
	defer resp.Body.Close()
	c.logger.Info("caldav response", "status", resp.StatusCode, "url", target)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil
	case resp.StatusCode == http.StatusPreconditionFailed:
		return fmt.Errorf("%w: event changed on server (precondition failed)", ErrDelete)
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: server returned %d: %s", ErrDelete, resp.StatusCode, strings.TrimSpace(string(data)))
	}
}

// multistatus mirrors the DAV:multistatus response of a calendar-query.
type multistatus struct {
	XMLName   xml.Name      `xml:"DAV: multistatus"`
	Responses []davResponse `xml:"response"`
}

type davResponse struct {
	Href      string     `xml:"href"`
	Propstats []propstat `xml:"propstat"`
}

type propstat struct {
	Status string  `xml:"status"`
	Prop   davProp `xml:"prop"`
}

type davProp struct {
	ETag         string `xml:"getetag"`
	CalendarData string `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
}

// calendarData returns the first propstat block carrying calendar data,
// paired with its etag.
func (r davResponse) calendarData() (data, etag string) {
	for _, ps := range r.Propstats {
		if ps.Prop.CalendarData != "" {
			return ps.Prop.CalendarData, ps.Prop.ETag
		}
	}
	return "", ""
}
