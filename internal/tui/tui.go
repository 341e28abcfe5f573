package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI and blocks until the user quits.
// The returned model carries the finished result, if the trace completed.
func Run(opts Options) (*Model, error) {
	model, err := New(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI model: %w", err)
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}

	m, ok := finalModel.(Model)
	if !ok {
		return model, nil
	}
	if m.state == StateError && m.err != nil {
		return &m, m.err
	}
	return &m, nil
}
