package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case ProgressMsg:
		m.done = msg.Done
		m.total = msg.Total
		return m, nil

	case DoneMsg:
		m.report = msg.Report
		m.finished = true
		if m.total > 0 {
			m.done = m.total
		}
		return m, tea.Quit

	case ErrMsg:
		m.err = msg.Err
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}
