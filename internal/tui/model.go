package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"

	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/notify"
)

// ViewState represents the current state of the TUI.
type ViewState int

const (
	StateStarting ViewState = iota // Waiting for the opening batch
	StateQuestion
	StateLoading
	StateError
	StateComplete
)

// Toast is a notification on screen until its timer fires.
type Toast struct {
	ID      int
	Text    string
	Warning bool
}

// Overlay is the stage announcement on screen, if any.
type Overlay struct {
	ID           int
	Notification notify.Notification
}

// ToastLifetime is how long a toast stays on screen.
const ToastLifetime = 4 * time.Second

// maxToasts bounds the toast stack.
const maxToasts = 3

// Model holds the application state shared by the views.
type Model struct {
	// State management
	State   ViewState
	Err     error
	Retry   bool   // Enter retries the failed operation
	Loading string // text shown next to the spinner

	// Session panels
	Confidence model.Confidence
	Progress   model.Progress
	Toasts     []Toast
	Overlay    *Overlay
	nextID     int

	// Bubbles components
	Spinner spinner.Model
	Bar     progress.Model

	// Terminal dimensions
	Width  int
	Height int

	// Ctrl+C confirmation state
	CtrlCPending bool // True when waiting for second Ctrl+C press
}

// NewModel creates a new Model with default components.
func NewModel() *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(primaryColor))

	bar := progress.New(progress.WithGradient(primaryColor, secondaryColor))
	bar.Width = 40

	return &Model{
		State:   StateStarting,
		Spinner: sp,
		Bar:     bar,
		Width:   80,
		Height:  24,
	}
}

// PushToast adds a toast and returns its id. The oldest toast is dropped
// when the stack is full.
func (m *Model) PushToast(text string, warning bool) int {
	m.nextID++
	m.Toasts = append(m.Toasts, Toast{ID: m.nextID, Text: text, Warning: warning})
	if len(m.Toasts) > maxToasts {
		m.Toasts = m.Toasts[len(m.Toasts)-maxToasts:]
	}
	return m.nextID
}

// ExpireToast removes the toast with the given id.
func (m *Model) ExpireToast(id int) {
	for i, t := range m.Toasts {
		if t.ID == id {
			m.Toasts = append(m.Toasts[:i], m.Toasts[i+1:]...)
			return
		}
	}
}

// ShowOverlay replaces the current overlay and returns its id.
func (m *Model) ShowOverlay(n notify.Notification) int {
	m.nextID++
	m.Overlay = &Overlay{ID: m.nextID, Notification: n}
	return m.nextID
}

// ExpireOverlay hides the overlay if it is still the one with id.
func (m *Model) ExpireOverlay(id int) {
	if m.Overlay != nil && m.Overlay.ID == id {
		m.Overlay = nil
	}
}
