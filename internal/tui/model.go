// Package tui renders live sweep progress in the terminal. The
// optimizer feeds it through program.Send; the model itself never
// touches the optimizer.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/aurelian-labs/aurelius/internal/backtesting"
	"github.com/aurelian-labs/aurelius/internal/optimizer"
)

// Model represents the sweep progress view.
type Model struct {
	pattern   string
	direction backtesting.Direction

	done    int
	total   int
	started time.Time

	report *optimizer.Report
	err    error

	width    int
	finished bool
}

// NewModel creates a progress model for one pattern/direction sweep.
func NewModel(pattern string, direction backtesting.Direction) Model {
	return Model{
		pattern:   pattern,
		direction: direction,
		started:   time.Now(),
		width:     80,
	}
}

// Init initializes the TUI
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Message types for the TUI
type tickMsg time.Time

// ProgressMsg reports completed candidate evaluations.
type ProgressMsg struct {
	Done  int
	Total int
}

// DoneMsg carries the finished sweep report.
type DoneMsg struct {
	Report *optimizer.Report
}

// ErrMsg aborts the view with a sweep error.
type ErrMsg struct {
	Err error
}

// tickCmd sends periodic tick messages
func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Report returns the finished report, if the sweep completed.
func (m Model) Report() *optimizer.Report {
	return m.report
}

// Err returns the sweep error, if any.
func (m Model) Err() error {
	return m.err
}
