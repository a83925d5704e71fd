// ABOUTME: Rendering for the month grid, day pane, and overlays
// ABOUTME: Pure functions of the model; no state changes here
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/agenda/cache"
	"github.com/harperreed/agenda/models"
)

func (m Model) View() string {
	if m.showLog {
		return m.renderLogView()
	}

	left := m.renderMonthGrid()
	right := m.renderDayPane()

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)

	var b strings.Builder
	b.WriteString(titleStyle.Render("agenda — " + fmtMonth(m.selected)))
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	b.WriteString(m.renderProviderLine())
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	b.WriteString("\n")
	b.WriteString(m.renderHelpLine())
	return b.String()
}

func (m Model) renderMonthGrid() string {
	var b strings.Builder

	weekdays := []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}
	shown := 7
	if !m.showWeekends {
		shown = 5
	}
	for _, wd := range weekdays[:shown] {
		b.WriteString(weekdayHeaderStyle.Render(wd))
	}
	b.WriteString("\n")

	first := time.Date(m.selected.Year(), m.selected.Month(), 1, 0, 0, 0, 0, m.selected.Location())
	// Walk back to the Monday on or before the 1st.
	offset := (int(first.Weekday()) + 6) % 7
	cursor := first.AddDate(0, 0, -offset)

	today := models.DateOf(time.Now())
	selected := models.DateOf(m.selected)

	for week := 0; week < 6; week++ {
		for day := 0; day < 7; day++ {
			d := cursor.AddDate(0, 0, week*7+day)
			if day >= shown {
				continue
			}
			b.WriteString(m.renderDayCell(d, today, selected))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderDayCell(d time.Time, today, selected string) string {
	date := models.DateOf(d)
	label := fmt.Sprintf("%d", d.Day())
	if m.cache.HasEvents(d) {
		label += "•"
	}

	switch {
	case date == selected:
		return daySelectedStyle.Render(label)
	case date == today:
		return dayTodayStyle.Render(label)
	case d.Month() != m.selected.Month():
		return dayOtherMonthStyle.Render(label)
	case m.cache.HasEvents(d):
		return dayBusyStyle.Render(label)
	case d.Weekday() == time.Saturday || d.Weekday() == time.Sunday:
		return dayWeekendStyle.Render(label)
	default:
		return dayStyle.Render(label)
	}
}

func (m Model) renderDayPane() string {
	var b strings.Builder
	b.WriteString(paneHeaderStyle.Render(m.selected.Format("Monday, January 2")))
	b.WriteString("\n\n")

	events := m.selectedEvents()
	if len(events) == 0 {
		b.WriteString(statusStyle.Render("No events"))
		return b.String()
	}

	for i, ev := range events {
		b.WriteString(m.renderEventLine(i, ev))
		b.WriteString("\n")
	}

	if m.mode == modeConfirm {
		b.WriteString("\n")
		b.WriteString(m.renderConfirmPrompt())
	} else if m.mode == modeEvents {
		if ev, ok := m.currentEvent(); ok {
			b.WriteString("\n")
			b.WriteString(m.renderEventDetail(ev))
		}
	}
	return b.String()
}

func (m Model) renderEventLine(i int, ev models.Event) string {
	timeStr := ev.TimeStr
	if ev.EndTimeStr != "" {
		timeStr += "-" + ev.EndTimeStr
	}

	line := eventTimeStyle.Render(timeStr) + " " + ev.Title
	if label := ev.ID.CalendarLabel(); label != "" {
		line += " " + calendarTagStyle.Render("["+label+"]")
	} else {
		line += " " + calendarTagStyle.Render("["+providerLabel(ev.ID)+"]")
	}

	switch {
	case m.mode != modeMonth && i == m.eventIndex:
		return eventSelectedStyle.Render(line)
	case !ev.Accepted:
		return eventDeclinedStyle.Render(line)
	case ev.IsFree:
		return eventFreeStyle.Render(line)
	default:
		return line
	}
}

func (m Model) renderEventDetail(ev models.Event) string {
	var b strings.Builder

	row := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(" ")
		b.WriteString(value)
		b.WriteString("\n")
	}

	row("Where", ev.Location)
	row("Link", ev.MeetingURL)
	if ev.IsOrganizer {
		row("Role", "organizer")
	}
	if len(ev.Attendees) > 0 {
		names := make([]string, 0, len(ev.Attendees))
		for _, att := range ev.Attendees {
			names = append(names, fmt.Sprintf("%s (%s)", att.Name, att.Status))
		}
		row("Who", strings.Join(names, ", "))
	}
	if ev.Description != "" {
		desc := ev.Description
		if len(desc) > 200 {
			desc = desc[:197] + "..."
		}
		row("Notes", desc)
	}
	return b.String()
}

func (m Model) renderConfirmPrompt() string {
	switch act := m.pending.(type) {
	case pendingDelete:
		return confirmStyle.Render(fmt.Sprintf("Delete %q from %s? (y/n)", act.event.Title, providerLabel(act.event.ID)))
	case pendingRespond:
		verb := "Accept"
		if act.status == models.StatusDeclined {
			verb = "Decline"
		}
		return confirmStyle.Render(fmt.Sprintf("%s %q? (y/n)", verb, act.event.Title))
	default:
		return ""
	}
}

func (m Model) renderProviderLine() string {
	var parts []string

	switch st := m.googleState.(type) {
	case googleNotConfigured:
		parts = append(parts, statusStyle.Render("Google: not configured"))
	case googleNotAuthenticated:
		parts = append(parts, statusStyle.Render("Google: press g to sign in"))
	case googleAwaitingCode:
		parts = append(parts, authPromptStyle.Render(fmt.Sprintf(
			"Google: enter code %s at %s %s", st.code.UserCode, st.code.VerificationURL, m.spinner.View())))
	case googleAuthenticated:
		label := "Google: connected"
		if m.fetchingGoogle {
			label += " " + m.spinner.View()
		}
		parts = append(parts, statusStyle.Render(label))
	case googleAuthError:
		parts = append(parts, errorStyle.Render("Google: "+shortErr(st.err)))
	}

	switch st := m.icloudStatus.(type) {
	case icloudNotConfigured:
		parts = append(parts, statusStyle.Render("iCloud: not configured"))
	case icloudNeedsDiscovery:
		parts = append(parts, statusStyle.Render("iCloud: press i to discover calendars"))
	case icloudDiscovering:
		parts = append(parts, statusStyle.Render("iCloud: discovering "+m.spinner.View()))
	case icloudReady:
		label := fmt.Sprintf("iCloud: %d calendars", len(m.icloudCalendars))
		if m.fetchingICloud {
			label += " " + m.spinner.View()
		}
		parts = append(parts, statusStyle.Render(label))
	case icloudError:
		parts = append(parts, errorStyle.Render("iCloud: "+shortErr(st.err)))
	}

	return strings.Join(parts, "   ")
}

func (m Model) renderStatusLine() string {
	if m.status == "" {
		return ""
	}
	return statusStyle.Render(m.status)
}

func (m Model) renderHelpLine() string {
	switch m.mode {
	case modeEvents:
		return helpStyle.Render("j/k select  a accept  d decline  x delete  o open link  esc back")
	case modeConfirm:
		return helpStyle.Render("y confirm  n cancel")
	default:
		return helpStyle.Render("h/l day  j/k week  ctrl+d/u month  t today  enter events  r refresh  g/i sign in  w weekends  D log  q quit")
	}
}

func (m Model) renderLogView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Request log"))
	b.WriteString("\n")

	var lines []string
	if m.logRing != nil {
		lines = m.logRing.Lines()
	}
	max := m.height - 4
	if max > 0 && len(lines) > max {
		lines = lines[len(lines)-max:]
	}
	for _, line := range lines {
		b.WriteString(logLineStyle.Render(line))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("D or esc to close"))
	return b.String()
}

func fmtMonth(t time.Time) string {
	return t.Format("January 2006")
}

// sortedDayEvents merges both providers for one date, all-day events first,
// then by start time.
func sortedDayEvents(c *cache.EventCache, date time.Time) []models.Event {
	var events []models.Event
	events = append(events, c.Google.Get(date)...)
	events = append(events, c.ICloud.Get(date)...)

	sort.SliceStable(events, func(i, j int) bool {
		iAll, jAll := events[i].TimeStr == models.AllDay, events[j].TimeStr == models.AllDay
		if iAll != jAll {
			return iAll
		}
		if events[i].TimeStr != events[j].TimeStr {
			return events[i].TimeStr < events[j].TimeStr
		}
		return events[i].Title < events[j].Title
	})
	return events
}
