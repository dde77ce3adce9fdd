// Package tui implements the terminal user interface using Bubble Tea.
package tui

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// Common key binding constants.
const (
	KeyCtrlC = "ctrl+c"
	KeyEnter = "enter"
	KeyEsc   = "esc"
	KeyUp    = "up"
	KeyDown  = "down"
	KeyLeft  = "left"
)

// IsTTY returns true if stdout is connected to a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// Run starts the program for m in alternate screen mode and attaches the
// presenter to it so machine callbacks reach the model as messages.
func Run(m tea.Model, pres *Presenter) (tea.Model, error) {
	p := tea.NewProgram(m, tea.WithAltScreen())
	pres.Attach(p)
	defer pres.Detach()
	return p.Run()
}
