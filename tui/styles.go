// ABOUTME: Shared lipgloss styles for the calendar TUI
// ABOUTME: Kept in one place so views stay consistent
package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	weekdayHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(4).
				Align(lipgloss.Center)

	dayStyle = lipgloss.NewStyle().
			Width(4).
			Align(lipgloss.Center)

	dayOtherMonthStyle = dayStyle.
				Foreground(lipgloss.Color("240"))

	dayWeekendStyle = dayStyle.
			Foreground(lipgloss.Color("245"))

	daySelectedStyle = dayStyle.
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("230")).
				Bold(true)

	dayTodayStyle = dayStyle.
			Foreground(lipgloss.Color("212")).
			Bold(true)

	dayBusyStyle = dayStyle.
			Foreground(lipgloss.Color("10"))

	paneHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	eventTimeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Width(13)

	eventSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("235")).
				Foreground(lipgloss.Color("255")).
				Bold(true)

	eventDeclinedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Strikethrough(true)

	eventFreeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	calendarTagStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(10)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	authPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	confirmStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	logLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)
