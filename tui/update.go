// ABOUTME: Message and key handlers for the calendar model
// ABOUTME: All state transitions live here; views never mutate
package tui

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/agenda/config"
	"github.com/harperreed/agenda/google"
	"github.com/harperreed/agenda/models"
)

func (m Model) handleGoogleEvents(msg googleEventsMsg) (tea.Model, tea.Cmd) {
	m.fetchingGoogle = false

	if msg.err != nil {
		if errors.Is(msg.err, google.ErrTokenExpired) {
			if tokens := m.googleTokens(); tokens != nil && tokens.RefreshToken != "" {
				m.needsFetchGoogle = true
				return m, m.refreshTokenCmd(tokens.RefreshToken)
			}
			m.googleState = googleNotAuthenticated{}
			return m, m.setStatus("Google session expired, press g to sign in")
		}
		return m, tea.Batch(
			m.setStatus("Google fetch failed: "+shortErr(msg.err)),
			m.scheduleFetches(),
		)
	}

	m.cache.Google.Store(msg.events, msg.month)
	return m, m.scheduleFetches()
}

func (m Model) handleICloudEvents(msg icloudEventsMsg) (tea.Model, tea.Cmd) {
	m.fetchingICloud = false

	if msg.err != nil && len(msg.events) == 0 {
		// Nothing usable came back; the month stays unfetched so the next
		// arm (navigation or a manual refresh) tries again.
		return m, tea.Batch(
			m.setStatus("iCloud fetch failed: "+shortErr(msg.err)),
			m.scheduleFetches(),
		)
	}

	m.cache.ICloud.Store(msg.events, msg.month)
	var cmds []tea.Cmd
	if msg.err != nil {
		cmds = append(cmds, m.setStatus("Some iCloud calendars failed: "+shortErr(msg.err)))
	}
	cmds = append(cmds, m.scheduleFetches())
	return m, tea.Batch(cmds...)
}

func (m Model) handleDeviceCode(msg deviceCodeMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.googleState = googleAuthError{err: msg.err}
		return m, m.setStatus("Sign-in start failed: " + shortErr(msg.err))
	}

	m.pollGen++
	m.googleState = googleAwaitingCode{
		code:      *msg.code,
		gen:       m.pollGen,
		expiresAt: msg.code.ExpiresAt(time.Now()),
	}
	return m, pollTickCmd(m.pollGen, time.Duration(msg.code.Interval)*time.Second)
}

func (m Model) handlePollTick(msg pollTickMsg) (tea.Model, tea.Cmd) {
	st, ok := m.googleState.(googleAwaitingCode)
	if !ok || msg.gen != st.gen {
		// A stale tick from an abandoned sign-in; the chain dies here.
		return m, nil
	}

	if time.Now().After(st.expiresAt) {
		m.googleState = googleAuthError{err: errors.New("sign-in code expired")}
		return m, m.setStatus("Sign-in code expired, press g to restart")
	}
	return m, m.pollCmd(st.gen, st.code.DeviceCode)
}

func (m Model) handlePollResult(msg pollResultMsg) (tea.Model, tea.Cmd) {
	st, ok := m.googleState.(googleAwaitingCode)
	if !ok || msg.gen != st.gen {
		return m, nil
	}

	switch msg.result.Status {
	case google.PollSuccess:
		m.googleState = googleAuthenticated{tokens: *msg.result.Tokens}
		m.persistTokens(*msg.result.Tokens)
		m.needsFetchGoogle = true
		return m, tea.Batch(
			m.setStatus("Google signed in"),
			m.scheduleFetches(),
		)
	case google.PollDenied:
		m.googleState = googleAuthError{err: errors.New("sign-in denied")}
		return m, m.setStatus("Google sign-in was denied")
	case google.PollExpired:
		m.googleState = googleAuthError{err: errors.New("sign-in code expired")}
		return m, m.setStatus("Sign-in code expired, press g to restart")
	default:
		// Pending and slow-down both keep the fixed cadence; the interval
		// already exceeds the server's minimum.
		return m, pollTickCmd(st.gen, time.Duration(st.code.Interval)*time.Second)
	}
}

func (m Model) handleRefreshResult(msg refreshResultMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.googleState = googleNotAuthenticated{}
		// The persisted tokens are dead weight now; drop them so the next
		// start goes straight to the sign-in prompt.
		if err := config.DeleteTokens(m.tokPath); err != nil {
			slog.Warn("stale token cleanup failed", "error", err)
		}
		return m, m.setStatus("Google session expired, press g to sign in")
	}

	m.googleState = googleAuthenticated{tokens: *msg.tokens}
	m.persistTokens(*msg.tokens)
	m.needsFetchGoogle = true
	return m, m.scheduleFetches()
}

func (m Model) handleDiscovery(msg discoveryMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.icloudStatus = icloudError{err: msg.err}
		return m, m.setStatus("iCloud discovery failed: " + shortErr(msg.err))
	}

	m.icloudCalendars = msg.calendars
	m.icloudStatus = icloudReady{}
	if err := config.SaveCalendars(m.calsPath, msg.calendars); err != nil {
		return m, tea.Batch(
			m.setStatus("Calendar list not saved: "+shortErr(err)),
			m.armICloudFetch(),
		)
	}
	return m, tea.Batch(
		m.setStatus(fmt.Sprintf("Found %d iCloud calendars", len(msg.calendars))),
		m.armICloudFetch(),
	)
}

func (m *Model) armICloudFetch() tea.Cmd {
	m.needsFetchICloud = true
	m.cache.ICloud.Invalidate(m.selected)
	return m.scheduleFetches()
}

func (m Model) handleRespondDone(msg respondDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.setStatus("RSVP failed: " + shortErr(msg.err))
	}

	m.cache.Google.Invalidate(m.selected)
	m.needsFetchGoogle = true
	verb := "accepted"
	if msg.status == models.StatusDeclined {
		verb = "declined"
	}
	return m, tea.Batch(
		m.setStatus(fmt.Sprintf("%s %q", capitalize(verb), msg.event.Title)),
		m.scheduleFetches(),
	)
}

func (m Model) handleDeleteDone(msg deleteDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.setStatus("Delete failed: " + shortErr(msg.err))
	}

	switch msg.event.ID.(type) {
	case models.GoogleEventID:
		m.cache.Google.Invalidate(m.selected)
		m.needsFetchGoogle = true
	case models.ICloudEventID:
		m.cache.ICloud.Invalidate(m.selected)
		m.needsFetchICloud = true
	}
	m.eventIndex = 0
	return m, tea.Batch(
		m.setStatus(fmt.Sprintf("Deleted %q", msg.event.Title)),
		m.scheduleFetches(),
	)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return m, tea.Quit
	}

	if m.showLog {
		switch key {
		case "D", "esc", "q":
			m.showLog = false
		}
		return m, nil
	}

	switch m.mode {
	case modeConfirm:
		return m.handleConfirmKeys(key)
	case modeEvents:
		return m.handleEventKeys(key)
	default:
		return m.handleMonthKeys(key)
	}
}

func (m Model) handleMonthKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "h", "left":
		return m, m.moveDay(-1)
	case "l", "right":
		return m, m.moveDay(1)
	case "j", "down":
		return m, m.moveDay(7)
	case "k", "up":
		return m, m.moveDay(-7)
	case "ctrl+d", "pgdown":
		return m, m.moveMonth(1)
	case "ctrl+u", "pgup":
		return m, m.moveMonth(-1)
	case "t":
		m.selected = time.Now()
		m.eventIndex = 0
		m.needsFetchGoogle = true
		m.needsFetchICloud = true
		return m, m.scheduleFetches()
	case "enter":
		if len(m.selectedEvents()) > 0 {
			m.mode = modeEvents
			m.eventIndex = 0
		}
		return m, nil
	case "g":
		return m.startGoogleAuth()
	case "i":
		return m.startDiscovery()
	case "r":
		m.cache.Clear()
		m.needsFetchGoogle = true
		m.needsFetchICloud = true
		return m, tea.Batch(m.setStatus("Refreshing all events"), m.scheduleFetches())
	case "w":
		m.showWeekends = !m.showWeekends
		return m, nil
	case "D":
		m.showLog = true
		return m, nil
	}
	return m, nil
}

func (m Model) startGoogleAuth() (tea.Model, tea.Cmd) {
	if m.googleAuth == nil {
		return m, m.setStatus("Google is not configured")
	}
	switch m.googleState.(type) {
	case googleAwaitingCode:
		return m, nil
	case googleAuthenticated:
		return m, m.setStatus("Already signed in to Google")
	default:
		return m, tea.Batch(
			m.setStatus("Requesting sign-in code"),
			m.requestDeviceCodeCmd(),
		)
	}
}

func (m Model) startDiscovery() (tea.Model, tea.Cmd) {
	if m.icloudClient == nil {
		return m, m.setStatus("iCloud is not configured")
	}
	if _, busy := m.icloudStatus.(icloudDiscovering); busy {
		return m, nil
	}
	m.icloudStatus = icloudDiscovering{}
	return m, tea.Batch(
		m.setStatus("Discovering iCloud calendars"),
		m.discoverCmd(),
	)
}

func (m Model) handleEventKeys(key string) (tea.Model, tea.Cmd) {
	events := m.selectedEvents()

	switch key {
	case "q", "esc":
		m.mode = modeMonth
		m.eventIndex = 0
		return m, nil
	case "j", "down":
		if m.eventIndex < len(events)-1 {
			m.eventIndex++
		}
		return m, nil
	case "k", "up":
		if m.eventIndex > 0 {
			m.eventIndex--
		}
		return m, nil
	case "a":
		return m.confirmRespond(models.StatusAccepted)
	case "d":
		return m.confirmRespond(models.StatusDeclined)
	case "x":
		if ev, ok := m.currentEvent(); ok {
			m.pending = pendingDelete{event: ev}
			m.mode = modeConfirm
		}
		return m, nil
	case "o":
		if ev, ok := m.currentEvent(); ok && ev.MeetingURL != "" {
			return m, openURLCmd(ev.MeetingURL)
		}
		return m, m.setStatus("No meeting link on this event")
	case "D":
		m.showLog = true
		return m, nil
	}
	return m, nil
}

func (m Model) confirmRespond(status models.AttendeeStatus) (tea.Model, tea.Cmd) {
	ev, ok := m.currentEvent()
	if !ok {
		return m, nil
	}
	if _, isGoogle := ev.ID.(models.GoogleEventID); !isGoogle {
		return m, m.setStatus("RSVP is only supported for Google events")
	}
	m.pending = pendingRespond{event: ev, status: status}
	m.mode = modeConfirm
	return m, nil
}

func (m Model) handleConfirmKeys(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "y":
		pending := m.pending
		m.pending = nil
		m.mode = modeEvents
		return m.commitPending(pending)
	case "n", "esc", "q":
		m.pending = nil
		m.mode = modeEvents
		return m, nil
	}
	return m, nil
}

func (m Model) commitPending(pending pendingAction) (tea.Model, tea.Cmd) {
	switch act := pending.(type) {
	case pendingRespond:
		id, ok := act.event.ID.(models.GoogleEventID)
		if !ok {
			return m, nil
		}
		tokens := m.googleTokens()
		if tokens == nil {
			return m, m.setStatus("Not signed in to Google")
		}
		return m, m.respondCmd(act.event, id, act.status, *tokens)
	case pendingDelete:
		return m, m.deleteCmd(act.event, m.googleTokens())
	default:
		return m, nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
