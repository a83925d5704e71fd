// ABOUTME: Tests for the model's state transitions
// ABOUTME: Covers poll generations, fetch single-flight, and RSVP guards
package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/agenda/cache"
	"github.com/harperreed/agenda/config"
	"github.com/harperreed/agenda/google"
	"github.com/harperreed/agenda/models"
	"github.com/harperreed/agenda/reqlog"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Google: &config.GoogleConfig{ClientID: "id", ClientSecret: "sec"},
	}
	m := New(cfg, cache.New(""), reqlog.NewRing(10),
		filepath.Join(dir, "tokens.json"), filepath.Join(dir, "icloud.json"))
	m.selected = time.Date(2025, 7, 14, 12, 0, 0, 0, time.Local)
	return m
}

func futureTokens() models.TokenInfo {
	return models.TokenInfo{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    time.Now().Add(time.Hour),
		TokenType:    "Bearer",
	}
}

func awaiting(gen int) googleAwaitingCode {
	return googleAwaitingCode{
		code:      google.DeviceCode{DeviceCode: "dev", UserCode: "ABCD", Interval: 5},
		gen:       gen,
		expiresAt: time.Now().Add(10 * time.Minute),
	}
}

func TestNewStartsUnauthenticated(t *testing.T) {
	m := newTestModel(t)
	assert.IsType(t, googleNotAuthenticated{}, m.googleState)
	assert.IsType(t, icloudNotConfigured{}, m.icloudStatus)
}

func TestNewRestoresPersistedTokens(t *testing.T) {
	dir := t.TempDir()
	tokPath := filepath.Join(dir, "tokens.json")
	require.NoError(t, config.SaveTokens(tokPath, futureTokens()))

	cfg := &config.Config{Google: &config.GoogleConfig{ClientID: "id", ClientSecret: "sec"}}
	m := New(cfg, cache.New(""), reqlog.NewRing(10), tokPath, filepath.Join(dir, "icloud.json"))

	assert.IsType(t, googleAuthenticated{}, m.googleState)
	assert.True(t, m.needsFetchGoogle)
}

func TestPollResultSuccessAuthenticatesAndPersists(t *testing.T) {
	m := newTestModel(t)
	m.pollGen = 1
	m.googleState = awaiting(1)

	tokens := futureTokens()
	next, cmd := m.handlePollResult(pollResultMsg{gen: 1, result: google.PollResult{
		Status: google.PollSuccess,
		Tokens: &tokens,
	}})

	updated := next.(Model)
	require.IsType(t, googleAuthenticated{}, updated.googleState)
	assert.NotNil(t, cmd)

	saved, err := config.LoadTokens(m.tokPath)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "at", saved.AccessToken)
}

func TestPollResultStaleGenerationIgnored(t *testing.T) {
	m := newTestModel(t)
	m.pollGen = 2
	m.googleState = awaiting(2)

	tokens := futureTokens()
	next, cmd := m.handlePollResult(pollResultMsg{gen: 1, result: google.PollResult{
		Status: google.PollSuccess,
		Tokens: &tokens,
	}})

	updated := next.(Model)
	assert.IsType(t, googleAwaitingCode{}, updated.googleState, "stale result must not commit tokens")
	assert.Nil(t, cmd)

	_, err := os.Stat(m.tokPath)
	assert.True(t, os.IsNotExist(err), "stale result must not persist tokens")
}

func TestPollResultPendingKeepsWaiting(t *testing.T) {
	m := newTestModel(t)
	m.pollGen = 1
	m.googleState = awaiting(1)

	next, cmd := m.handlePollResult(pollResultMsg{gen: 1, result: google.PollResult{Status: google.PollPending}})

	updated := next.(Model)
	assert.IsType(t, googleAwaitingCode{}, updated.googleState)
	assert.NotNil(t, cmd, "pending must schedule the next tick")
}

func TestPollResultDenied(t *testing.T) {
	m := newTestModel(t)
	m.pollGen = 1
	m.googleState = awaiting(1)

	next, _ := m.handlePollResult(pollResultMsg{gen: 1, result: google.PollResult{Status: google.PollDenied}})
	assert.IsType(t, googleAuthError{}, next.(Model).googleState)
}

func TestPollTickAfterExpiryStopsPolling(t *testing.T) {
	m := newTestModel(t)
	m.pollGen = 1
	st := awaiting(1)
	st.expiresAt = time.Now().Add(-time.Minute)
	m.googleState = st

	next, _ := m.handlePollTick(pollTickMsg{gen: 1})

	updated := next.(Model)
	assert.IsType(t, googleAuthError{}, updated.googleState)
	assert.Contains(t, updated.status, "expired")
}

func TestPollTickStaleGenerationDies(t *testing.T) {
	m := newTestModel(t)
	m.pollGen = 3
	m.googleState = awaiting(3)

	_, cmd := m.handlePollTick(pollTickMsg{gen: 2})
	assert.Nil(t, cmd, "stale tick must not poll or reschedule")
}

func TestScheduleFetchesSingleFlight(t *testing.T) {
	m := newTestModel(t)
	m.googleState = googleAuthenticated{tokens: futureTokens()}
	m.needsFetchGoogle = true

	cmd := m.scheduleFetches()
	assert.NotNil(t, cmd)
	assert.True(t, m.fetchingGoogle)
	assert.False(t, m.needsFetchGoogle, "flag must clear before the fetch runs")

	m.needsFetchGoogle = true
	cmd = m.scheduleFetches()
	// A fetch is already in flight; arming again must not double-spawn.
	assert.True(t, m.needsFetchGoogle)
	assert.Nil(t, cmd)
}

func TestScheduleFetchesSkipsCachedMonth(t *testing.T) {
	m := newTestModel(t)
	m.googleState = googleAuthenticated{tokens: futureTokens()}
	m.cache.Google.Store(nil, m.selected)
	m.needsFetchGoogle = true

	cmd := m.scheduleFetches()
	assert.Nil(t, cmd)
	assert.False(t, m.needsFetchGoogle)
	assert.False(t, m.fetchingGoogle)
}

func TestGoogleEventsStoredAndMonthMarked(t *testing.T) {
	m := newTestModel(t)
	m.googleState = googleAuthenticated{tokens: futureTokens()}
	m.fetchingGoogle = true

	events := []models.Event{{
		ID:    models.GoogleEventID{CalendarID: "primary", EventID: "e1"},
		Title: "Standup", Date: "2025-07-14", TimeStr: "09:00", Accepted: true,
	}}
	next, _ := m.handleGoogleEvents(googleEventsMsg{month: m.selected, events: events})

	updated := next.(Model)
	assert.False(t, updated.fetchingGoogle)
	assert.True(t, updated.cache.Google.HasMonth(m.selected))
	assert.Len(t, updated.selectedEvents(), 1)
}

func TestGoogleEventsFetchErrorLeavesMonthUnfetched(t *testing.T) {
	m := newTestModel(t)
	m.googleState = googleAuthenticated{tokens: futureTokens()}
	m.fetchingGoogle = true

	next, _ := m.handleGoogleEvents(googleEventsMsg{month: m.selected, err: errors.New("boom")})

	updated := next.(Model)
	assert.False(t, updated.cache.Google.HasMonth(m.selected))
	assert.Contains(t, updated.status, "fetch failed")
}

func TestGoogleEventsTokenExpiredTriggersRefresh(t *testing.T) {
	m := newTestModel(t)
	m.googleState = googleAuthenticated{tokens: futureTokens()}
	m.fetchingGoogle = true

	next, cmd := m.handleGoogleEvents(googleEventsMsg{month: m.selected, err: google.ErrTokenExpired})

	updated := next.(Model)
	assert.True(t, updated.needsFetchGoogle, "fetch must re-arm for after the refresh")
	assert.NotNil(t, cmd)
}

func TestRefreshFailureDropsToUnauthenticated(t *testing.T) {
	m := newTestModel(t)
	m.googleState = googleAuthenticated{tokens: futureTokens()}
	require.NoError(t, config.SaveTokens(m.tokPath, futureTokens()))

	next, _ := m.handleRefreshResult(refreshResultMsg{err: google.ErrRefreshFailed})

	updated := next.(Model)
	assert.IsType(t, googleNotAuthenticated{}, updated.googleState)
	assert.Contains(t, updated.status, "press g")

	_, err := os.Stat(m.tokPath)
	assert.True(t, os.IsNotExist(err), "dead tokens must not survive a failed refresh")
}

func TestICloudPartialResultsStoredWithWarning(t *testing.T) {
	m := newTestModel(t)
	m.icloudStatus = icloudReady{}
	m.fetchingICloud = true

	events := []models.Event{{
		ID:    models.ICloudEventID{CalendarURL: "/cal/", EventUID: "u1"},
		Title: "Kept", Date: "2025-07-14", TimeStr: models.AllDay,
	}}
	next, _ := m.handleICloudEvents(icloudEventsMsg{
		month: m.selected, events: events, err: errors.New("calendar Work: 500"),
	})

	updated := next.(Model)
	assert.True(t, updated.cache.ICloud.HasMonth(m.selected))
	assert.Len(t, updated.selectedEvents(), 1)
	assert.Contains(t, updated.status, "Some iCloud calendars failed")
}

func TestICloudTotalFailureLeavesMonthUnfetched(t *testing.T) {
	m := newTestModel(t)
	m.icloudStatus = icloudReady{}
	m.fetchingICloud = true

	next, _ := m.handleICloudEvents(icloudEventsMsg{month: m.selected, err: errors.New("auth failed")})

	updated := next.(Model)
	assert.False(t, updated.cache.ICloud.HasMonth(m.selected))
}

func TestMoveMonthArmsBothFetches(t *testing.T) {
	m := newTestModel(t)
	m.moveMonth(1)
	assert.Equal(t, time.August, m.selected.Month())
	assert.True(t, m.needsFetchGoogle)
	assert.True(t, m.needsFetchICloud)
}

func TestMoveMonthClampsDay(t *testing.T) {
	m := newTestModel(t)
	m.selected = time.Date(2025, 1, 31, 0, 0, 0, 0, time.Local)
	m.moveMonth(1)
	assert.Equal(t, time.February, m.selected.Month())
	assert.Equal(t, 28, m.selected.Day())
}

func TestMoveDayAcrossMonthBoundaryArmsFetch(t *testing.T) {
	m := newTestModel(t)
	m.selected = time.Date(2025, 7, 31, 0, 0, 0, 0, time.Local)
	m.moveDay(1)
	assert.Equal(t, time.August, m.selected.Month())
	assert.True(t, m.needsFetchICloud)
}

func TestRSVPBlockedForICloudEvents(t *testing.T) {
	m := newTestModel(t)
	m.cache.ICloud.Store([]models.Event{{
		ID:    models.ICloudEventID{CalendarURL: "/cal/", EventUID: "u1"},
		Title: "Lunch", Date: "2025-07-14", TimeStr: "12:00",
	}}, m.selected)
	m.mode = modeEvents

	next, _ := m.handleEventKeys("a")

	updated := next.(Model)
	assert.Equal(t, modeEvents, updated.mode, "no confirmation prompt for iCloud RSVP")
	assert.Contains(t, updated.status, "only supported for Google")
}

func TestDeleteConfirmFlow(t *testing.T) {
	m := newTestModel(t)
	m.googleState = googleAuthenticated{tokens: futureTokens()}
	m.cache.Google.Store([]models.Event{{
		ID:    models.GoogleEventID{CalendarID: "primary", EventID: "e1"},
		Title: "Standup", Date: "2025-07-14", TimeStr: "09:00",
	}}, m.selected)
	m.mode = modeEvents

	next, _ := m.handleEventKeys("x")
	updated := next.(Model)
	require.Equal(t, modeConfirm, updated.mode)
	require.IsType(t, pendingDelete{}, updated.pending)

	next, cmd := updated.handleConfirmKeys("n")
	updated = next.(Model)
	assert.Equal(t, modeEvents, updated.mode)
	assert.Nil(t, updated.pending)
	assert.Nil(t, cmd)

	next, _ = updated.handleEventKeys("x")
	updated = next.(Model)
	next, cmd = updated.handleConfirmKeys("y")
	updated = next.(Model)
	assert.Nil(t, updated.pending)
	assert.NotNil(t, cmd, "confirmed delete must dispatch the command")
}

func TestDeleteDoneInvalidatesProviderMonth(t *testing.T) {
	m := newTestModel(t)
	m.cache.ICloud.Store(nil, m.selected)
	require.True(t, m.cache.ICloud.HasMonth(m.selected))

	ev := models.Event{
		ID:    models.ICloudEventID{CalendarURL: "/cal/", EventUID: "u1"},
		Title: "Gone", Date: "2025-07-14", TimeStr: "12:00",
	}
	next, _ := m.handleDeleteDone(deleteDoneMsg{event: ev})

	updated := next.(Model)
	assert.False(t, updated.cache.ICloud.HasMonth(m.selected))
	assert.True(t, updated.needsFetchICloud)
}

func TestStatusClearRespectsID(t *testing.T) {
	m := newTestModel(t)
	_ = m.setStatus("first")
	_ = m.setStatus("second")

	next, _ := m.Update(statusClearMsg{id: 1})
	assert.Equal(t, "second", next.(Model).status, "older expiry must not clear a newer status")

	next, _ = next.(Model).Update(statusClearMsg{id: 2})
	assert.Empty(t, next.(Model).status)
}

func TestDayEventsSortAllDayFirst(t *testing.T) {
	m := newTestModel(t)
	m.cache.Google.Store([]models.Event{
		{ID: models.GoogleEventID{EventID: "e1"}, Title: "Late", Date: "2025-07-14", TimeStr: "16:00"},
		{ID: models.GoogleEventID{EventID: "e2"}, Title: "Early", Date: "2025-07-14", TimeStr: "09:00"},
	}, m.selected)
	m.cache.ICloud.Store([]models.Event{
		{ID: models.ICloudEventID{EventUID: "u1"}, Title: "Holiday", Date: "2025-07-14", TimeStr: models.AllDay},
	}, m.selected)

	events := m.selectedEvents()
	require.Len(t, events, 3)
	assert.Equal(t, "Holiday", events[0].Title)
	assert.Equal(t, "Early", events[1].Title)
	assert.Equal(t, "Late", events[2].Title)
}

func TestViewRendersWithoutPanic(t *testing.T) {
	m := newTestModel(t)
	m.googleState = awaiting(1)
	assert.NotEmpty(t, m.View())

	m.showLog = true
	assert.NotEmpty(t, m.View())
}

var _ tea.Model = Model{}
