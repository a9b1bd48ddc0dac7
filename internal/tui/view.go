package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	successColor = lipgloss.Color("#00FF87")
	errorColor   = lipgloss.Color("#FF5555")
	mutedColor   = lipgloss.Color("#6272A4")

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	barFillStyle = lipgloss.NewStyle().
			Foreground(successColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)
)

// View renders the TUI
func (m Model) View() string {
	header := m.renderHeader()
	progress := m.renderProgress()
	status := m.renderStatus()
	help := helpStyle.Render("q: quit")

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		"",
		progress,
		status,
		"",
		help,
	)
}

// renderHeader renders the sweep title line
func (m Model) renderHeader() string {
	title := titleStyle.Render("⚡ PARAMETER SWEEP")
	target := mutedStyle.Render(fmt.Sprintf("%s / %s", m.pattern, m.direction))

	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", target)
}

// renderProgress renders the progress bar
func (m Model) renderProgress() string {
	width := m.width - 20
	if width < 10 {
		width = 10
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.done) / float64(m.total)
	}
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}

	bar := barFillStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))

	return fmt.Sprintf("%s %5.1f%%", bar, ratio*100)
}

// renderStatus renders the counters below the bar
func (m Model) renderStatus() string {
	if m.err != nil {
		return errorStyle.Render("error: " + m.err.Error())
	}
	if m.report != nil {
		return successStyle.Render(fmt.Sprintf(
			"done: %d tested, %d survivors in %s",
			m.report.Tested, len(m.report.Results), m.report.Elapsed.Round(time.Millisecond)))
	}

	elapsed := time.Since(m.started).Round(time.Second)
	return mutedStyle.Render(fmt.Sprintf("%d / %d candidates  •  %s", m.done, m.total, elapsed))
}
