// ABOUTME: Message types and commands feeding the single update loop
// ABOUTME: Every network operation runs as a command and reports back as a message
package tui

import (
	"context"
	"os/exec"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/agenda/convert"
	"github.com/harperreed/agenda/google"
	"github.com/harperreed/agenda/models"
)

const (
	statusLifetime = 5 * time.Second
	pollInterval   = 5 * time.Second
	fetchTimeout   = 60 * time.Second
)

// googleEventsMsg delivers one month of normalized Google events.
type googleEventsMsg struct {
	month  time.Time
	events []models.Event
	name   string
	err    error
}

// icloudEventsMsg delivers one month of normalized iCloud events. Partial
// results arrive alongside err when some calendars failed.
type icloudEventsMsg struct {
	month  time.Time
	events []models.Event
	err    error
}

// deviceCodeMsg delivers the start of a device-flow sign-in.
type deviceCodeMsg struct {
	code *google.DeviceCode
	err  error
}

// pollTickMsg fires one poll attempt. Ticks from an abandoned sign-in carry a
// stale generation and are dropped.
type pollTickMsg struct {
	gen int
}

// pollResultMsg carries the classified outcome of one token poll.
type pollResultMsg struct {
	gen    int
	result google.PollResult
}

// refreshResultMsg delivers a startup token refresh.
type refreshResultMsg struct {
	tokens *models.TokenInfo
	err    error
}

// discoveryMsg delivers the iCloud calendar list.
type discoveryMsg struct {
	calendars []models.CalendarEntry
	err       error
}

// respondDoneMsg reports an accept/decline round trip.
type respondDoneMsg struct {
	event  models.Event
	status models.AttendeeStatus
	err    error
}

// deleteDoneMsg reports an event deletion.
type deleteDoneMsg struct {
	event models.Event
	err   error
}

// statusClearMsg expires the status line; stale ids are ignored.
type statusClearMsg struct {
	id int
}

func (m Model) fetchGoogleCmd(tokens models.TokenInfo, month time.Time) tea.Cmd {
	calendarID := m.cfg.GoogleCalendarID()
	extra := m.googleAPIOpts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		client, err := google.NewCalendarClient(ctx, tokens.AccessToken, nil, extra...)
		if err != nil {
			return googleEventsMsg{month: month, err: err}
		}

		name, err := client.CalendarName(ctx, calendarID)
		if err != nil {
			// Display names are cosmetic; the fetch proceeds without one.
			name = ""
		}

		items, err := client.ListMonth(ctx, calendarID, month)
		if err != nil {
			return googleEventsMsg{month: month, name: name, err: err}
		}

		var events []models.Event
		for _, item := range items {
			if ev, ok := convert.FromGoogle(item, calendarID, name); ok {
				events = append(events, ev)
			}
		}
		return googleEventsMsg{month: month, events: events, name: name}
	}
}

func (m Model) fetchICloudCmd(month time.Time) tea.Cmd {
	client := m.icloudClient
	calendars := m.icloudCalendars
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		recs, err := client.FetchMonth(ctx, calendars, month)
		var events []models.Event
		for _, rec := range recs {
			events = append(events, convert.FromICloud(rec))
		}
		return icloudEventsMsg{month: month, events: events, err: err}
	}
}

func (m Model) requestDeviceCodeCmd() tea.Cmd {
	auth := m.googleAuth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		code, err := auth.RequestDeviceCode(ctx)
		return deviceCodeMsg{code: code, err: err}
	}
}

func pollTickCmd(gen int, interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return pollTickMsg{gen: gen}
	})
}

func (m Model) pollCmd(gen int, deviceCode string) tea.Cmd {
	auth := m.googleAuth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return pollResultMsg{gen: gen, result: auth.PollForToken(ctx, deviceCode)}
	}
}

func (m Model) refreshTokenCmd(refreshToken string) tea.Cmd {
	auth := m.googleAuth
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		tokens, err := auth.RefreshToken(ctx, refreshToken)
		return refreshResultMsg{tokens: tokens, err: err}
	}
}

func (m Model) discoverCmd() tea.Cmd {
	client := m.icloudClient
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		calendars, err := client.DiscoverCalendars(ctx)
		return discoveryMsg{calendars: calendars, err: err}
	}
}

func (m Model) respondCmd(ev models.Event, id models.GoogleEventID, status models.AttendeeStatus, tokens models.TokenInfo) tea.Cmd {
	extra := m.googleAPIOpts
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client, err := google.NewCalendarClient(ctx, tokens.AccessToken, nil, extra...)
		if err != nil {
			return respondDoneMsg{event: ev, status: status, err: err}
		}
		return respondDoneMsg{event: ev, status: status, err: client.Respond(ctx, id, status)}
	}
}

func (m Model) deleteCmd(ev models.Event, tokens *models.TokenInfo) tea.Cmd {
	extra := m.googleAPIOpts
	icloudClient := m.icloudClient
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		switch id := ev.ID.(type) {
		case models.GoogleEventID:
			if tokens == nil {
				return deleteDoneMsg{event: ev, err: google.ErrTokenExpired}
			}
			client, err := google.NewCalendarClient(ctx, tokens.AccessToken, nil, extra...)
			if err != nil {
				return deleteDoneMsg{event: ev, err: err}
			}
			return deleteDoneMsg{event: ev, err: client.DeleteEvent(ctx, id)}
		case models.ICloudEventID:
			return deleteDoneMsg{event: ev, err: icloudClient.DeleteEvent(ctx, id)}
		default:
			return deleteDoneMsg{event: ev, err: nil}
		}
	}
}

// openURLCmd hands a link to the desktop. Errors only reach the log.
func openURLCmd(url string) tea.Cmd {
	return func() tea.Msg {
		_ = exec.Command("xdg-open", url).Start()
		return nil
	}
}
