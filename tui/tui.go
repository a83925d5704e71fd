// ABOUTME: Bubbletea model for the month-view calendar
// ABOUTME: Owns auth state machines, fetch orchestration, and the event caches
package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"google.golang.org/api/option"

	"github.com/harperreed/agenda/cache"
	"github.com/harperreed/agenda/config"
	"github.com/harperreed/agenda/google"
	"github.com/harperreed/agenda/icloud"
	"github.com/harperreed/agenda/models"
	"github.com/harperreed/agenda/reqlog"
)

// googleAuthState is the Google sign-in state machine. It is a closed sum:
// Update type-switches on it and every transition replaces the whole value.
type googleAuthState interface{ isGoogleAuthState() }

type googleNotConfigured struct{}
type googleNotAuthenticated struct{}
type googleAwaitingCode struct {
	code      google.DeviceCode
	gen       int
	expiresAt time.Time
}
type googleAuthenticated struct{ tokens models.TokenInfo }
type googleAuthError struct{ err error }

func (googleNotConfigured) isGoogleAuthState()    {}
func (googleNotAuthenticated) isGoogleAuthState() {}
func (googleAwaitingCode) isGoogleAuthState()     {}
func (googleAuthenticated) isGoogleAuthState()    {}
func (googleAuthError) isGoogleAuthState()        {}

// icloudState is the CalDAV side's state machine.
type icloudState interface{ isICloudState() }

type icloudNotConfigured struct{}
type icloudNeedsDiscovery struct{}
type icloudDiscovering struct{}
type icloudReady struct{}
type icloudError struct{ err error }

func (icloudNotConfigured) isICloudState()  {}
func (icloudNeedsDiscovery) isICloudState() {}
func (icloudDiscovering) isICloudState()    {}
func (icloudReady) isICloudState()          {}
func (icloudError) isICloudState()          {}

// viewMode selects the keyboard focus.
type viewMode int

const (
	modeMonth viewMode = iota
	modeEvents
	modeConfirm
)

// pendingAction is what a y/n confirmation would commit.
type pendingAction interface{ isPendingAction() }

type pendingDelete struct{ event models.Event }
type pendingRespond struct {
	event  models.Event
	status models.AttendeeStatus
}

func (pendingDelete) isPendingAction()  {}
func (pendingRespond) isPendingAction() {}

// Model is the whole application state. Only Update mutates it; commands do
// network work off-loop and report back with messages.
type Model struct {
	cfg      *config.Config
	cache    *cache.EventCache
	logRing  *reqlog.Ring
	tokPath  string
	calsPath string

	googleAuth    *google.Auth
	googleAPIOpts []option.ClientOption
	icloudClient  *icloud.Client

	googleState     googleAuthState
	icloudStatus    icloudState
	icloudCalendars []models.CalendarEntry

	selected     time.Time
	mode         viewMode
	eventIndex   int
	pending      pendingAction
	showWeekends bool
	showLog      bool

	needsFetchGoogle bool
	needsFetchICloud bool
	fetchingGoogle   bool
	fetchingICloud   bool

	pollGen int

	status   string
	statusID int

	spinner spinner.Model
	width   int
	height  int
}

// New assembles the model from loaded config, cache, and persisted state.
func New(cfg *config.Config, evCache *cache.EventCache, ring *reqlog.Ring, tokensPath, calendarsPath string) Model {
	m := Model{
		cfg:          cfg,
		cache:        evCache,
		logRing:      ring,
		tokPath:      tokensPath,
		calsPath:     calendarsPath,
		selected:     time.Now(),
		showWeekends: true,
		googleState:  googleNotConfigured{},
		icloudStatus: icloudNotConfigured{},
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		width:        80,
		height:       24,
	}

	if cfg.GoogleReady() {
		m.googleAuth = google.NewAuth(cfg.Google.ClientID, cfg.Google.ClientSecret, nil)
		m.googleState = googleNotAuthenticated{}
		if tokens, err := config.LoadTokens(tokensPath); err == nil && tokens != nil {
			m.googleState = googleAuthenticated{tokens: *tokens}
			m.needsFetchGoogle = true
		}
	}

	if cfg.ICloudReady() {
		client, err := icloud.NewClient(cfg.ICloudServerURL(), cfg.ICloud.AppleID, cfg.ICloud.AppPassword, nil)
		if err != nil {
			m.icloudStatus = icloudError{err: err}
		} else {
			m.icloudClient = client
			m.icloudStatus = icloudNeedsDiscovery{}
			if cals, err := config.LoadCalendars(calendarsPath); err == nil && len(cals) > 0 {
				m.icloudCalendars = cals
				m.icloudStatus = icloudReady{}
				m.needsFetchICloud = true
			}
		}
	}

	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}

	// An expired persisted token is refreshed before the first fetch so the
	// fetch never burns a round trip on a guaranteed 401.
	if st, ok := m.googleState.(googleAuthenticated); ok && st.tokens.IsExpired() {
		if st.tokens.RefreshToken != "" {
			cmds = append(cmds, m.refreshTokenCmd(st.tokens.RefreshToken))
		}
	} else {
		cmds = append(cmds, func() tea.Msg { return initialFetchMsg{} })
	}
	return tea.Batch(cmds...)
}

// initialFetchMsg triggers the first scheduleFetches pass after startup,
// since Init cannot mutate the fetch flags itself.
type initialFetchMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case initialFetchMsg:
		return m, m.scheduleFetches()
	case googleEventsMsg:
		return m.handleGoogleEvents(msg)
	case icloudEventsMsg:
		return m.handleICloudEvents(msg)
	case deviceCodeMsg:
		return m.handleDeviceCode(msg)
	case pollTickMsg:
		return m.handlePollTick(msg)
	case pollResultMsg:
		return m.handlePollResult(msg)
	case refreshResultMsg:
		return m.handleRefreshResult(msg)
	case discoveryMsg:
		return m.handleDiscovery(msg)
	case respondDoneMsg:
		return m.handleRespondDone(msg)
	case deleteDoneMsg:
		return m.handleDeleteDone(msg)
	case statusClearMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil
	}
	return m, nil
}

// scheduleFetches arms any provider fetch the current month still needs.
// Flags are cleared before the commands run, so a message arriving mid-fetch
// cannot double-spawn.
func (m *Model) scheduleFetches() tea.Cmd {
	var cmds []tea.Cmd

	if st, ok := m.googleState.(googleAuthenticated); ok {
		switch {
		case m.needsFetchGoogle && !m.fetchingGoogle && !m.cache.Google.HasMonth(m.selected):
			m.needsFetchGoogle = false
			m.fetchingGoogle = true
			cmds = append(cmds, m.fetchGoogleCmd(st.tokens, m.selected))
		case m.needsFetchGoogle && m.cache.Google.HasMonth(m.selected):
			m.needsFetchGoogle = false
		}
	}

	if _, ok := m.icloudStatus.(icloudReady); ok {
		switch {
		case m.needsFetchICloud && !m.fetchingICloud && !m.cache.ICloud.HasMonth(m.selected):
			m.needsFetchICloud = false
			m.fetchingICloud = true
			cmds = append(cmds, m.fetchICloudCmd(m.selected))
		case m.needsFetchICloud && m.cache.ICloud.HasMonth(m.selected):
			m.needsFetchICloud = false
		}
	}

	return tea.Batch(cmds...)
}

func (m *Model) setStatus(s string) tea.Cmd {
	m.status = s
	m.statusID++
	id := m.statusID
	return tea.Tick(statusLifetime, func(time.Time) tea.Msg {
		return statusClearMsg{id: id}
	})
}

func (m *Model) moveDay(days int) tea.Cmd {
	before := m.selected.Month()
	m.selected = m.selected.AddDate(0, 0, days)
	m.eventIndex = 0
	if m.selected.Month() != before {
		m.needsFetchGoogle = true
		m.needsFetchICloud = true
	}
	return m.scheduleFetches()
}

func (m *Model) moveMonth(months int) tea.Cmd {
	m.selected = addMonthClamped(m.selected, months)
	m.eventIndex = 0
	m.needsFetchGoogle = true
	m.needsFetchICloud = true
	return m.scheduleFetches()
}

// addMonthClamped hops months keeping the day-of-month stable, pulling back
// to the target month's last day when it is shorter.
func addMonthClamped(t time.Time, months int) time.Time {
	target := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func (m Model) selectedEvents() []models.Event {
	return sortedDayEvents(m.cache, m.selected)
}

func (m Model) currentEvent() (models.Event, bool) {
	events := m.selectedEvents()
	if len(events) == 0 || m.eventIndex >= len(events) {
		return models.Event{}, false
	}
	return events[m.eventIndex], true
}

func (m Model) googleTokens() *models.TokenInfo {
	if st, ok := m.googleState.(googleAuthenticated); ok {
		tokens := st.tokens
		return &tokens
	}
	return nil
}

func (m *Model) persistTokens(tokens models.TokenInfo) {
	if err := config.SaveTokens(m.tokPath, tokens); err != nil {
		slog.Warn("token persist failed", "error", err)
	}
}

func providerLabel(id models.EventID) string {
	switch id.(type) {
	case models.GoogleEventID:
		return "Google"
	case models.ICloudEventID:
		return "iCloud"
	default:
		return "?"
	}
}

func shortErr(err error) string {
	s := err.Error()
	if len(s) > 80 {
		return s[:77] + "..."
	}
	return s
}
