// Package app provides the main TUI application that drives an assessment
// session through the state machine.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/report"
	"github.com/berth-dev/assessor/internal/tui"
	"github.com/berth-dev/assessor/internal/tui/views"
)

// DefaultAutoAdvance is the pause between answering and moving on.
const DefaultAutoAdvance = 350 * time.Millisecond

// Machine is the part of *assessment.Machine the app drives.
type Machine interface {
	Start(ctx context.Context, req assessment.StartRequest) error
	Resume(ctx context.Context) (bool, error)
	RecordAnswer(optionIndex int, elapsed time.Duration) error
	Advance(ctx context.Context) (assessment.Outcome, error)
	Retreat() error
	AtBoundary() bool
	Epoch() uint64
}

// ReportSource returns the report saved by the last completion.
type ReportSource interface {
	Last() *report.Saved
}

// Options configure an App.
type Options struct {
	Machine     Machine
	Reports     ReportSource // optional
	Request     assessment.StartRequest
	Resume      bool // resume from the checkpoint when one exists
	AutoAdvance time.Duration
	Context     context.Context
}

type retryOp int

const (
	retryNone retryOp = iota
	retryStart
	retryAdvance
)

// App is the Bubble Tea model for an assessment session.
type App struct {
	model    *tui.Model
	opts     Options
	ctx      context.Context
	question views.QuestionModel
	retry    retryOp
	saved    *report.Saved
}

// New creates a new App.
func New(opts Options) *App {
	if opts.AutoAdvance <= 0 {
		opts.AutoAdvance = DefaultAutoAdvance
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	return &App{
		model: tui.NewModel(),
		opts:  opts,
		ctx:   ctx,
	}
}

// Init starts or resumes the session.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.model.Spinner.Tick, a.startCmd())
}

// Err returns the error that stopped the session, if any.
func (a *App) Err() error {
	return a.model.Err
}

// Completed reports whether the session finished.
func (a *App) Completed() bool {
	return a.model.State == tui.StateComplete
}

// Update handles messages and updates the application state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.model.Width = msg.Width
		a.model.Height = msg.Height
		a.model.Bar.Width = min(60, max(10, msg.Width-30))
		var cmd tea.Cmd
		a.question, cmd = a.question.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if msg.String() == tui.KeyCtrlC {
			if a.model.CtrlCPending {
				// Second press within timeout - exit
				return a, tea.Quit
			}
			a.model.CtrlCPending = true
			return a, tea.Tick(time.Second, func(time.Time) tea.Msg {
				return tui.CtrlCResetMsg{}
			})
		}
		return a.handleKey(msg)

	case tui.CtrlCResetMsg:
		a.model.CtrlCPending = false
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.model.Spinner, cmd = a.model.Spinner.Update(msg)
		return a, cmd

	// Presenter messages
	case tui.QuestionMsg:
		a.model.State = tui.StateQuestion
		a.model.Overlay = nil
		a.model.Err = nil
		a.question = views.NewQuestionModel(msg.View, a.model.Width, a.model.Height)
		return a, a.question.Init()

	case tui.ConfidenceMsg:
		a.model.Confidence = msg.Confidence
		return a, nil

	case tui.ProgressMsg:
		a.model.Progress = msg.Progress
		return a, nil

	case tui.LoadingMsg:
		a.model.State = tui.StateLoading
		a.model.Loading = msg.Text
		return a, nil

	case tui.ToastMsg:
		text := msg.Notification.Text
		if msg.Notification.Title != "" {
			text = msg.Notification.Title + ": " + text
		}
		return a, expireToast(a.model.PushToast(text, false))

	case tui.WarningMsg:
		return a, expireToast(a.model.PushToast(msg.Text, true))

	case tui.OverlayMsg:
		id := a.model.ShowOverlay(msg.Notification)
		if msg.Notification.Dwell > 0 {
			return a, tea.Tick(msg.Notification.Dwell, func(time.Time) tea.Msg {
				return tui.OverlayExpiredMsg{ID: id}
			})
		}
		return a, nil

	case tui.ToastExpiredMsg:
		a.model.ExpireToast(msg.ID)
		return a, nil

	case tui.OverlayExpiredMsg:
		a.model.ExpireOverlay(msg.ID)
		return a, nil

	// Machine results
	case tui.StartedMsg:
		if msg.Err != nil {
			a.fail(msg.Err, retryStart)
			return a, nil
		}
		if msg.AtBoundary {
			a.model.State = tui.StateLoading
			return a, a.advanceCmd()
		}
		return a, nil

	case tui.AnswerMsg:
		return a, a.answerCmd(msg.Option)

	case tui.AnsweredMsg:
		if msg.Err != nil {
			a.question = a.question.Unlock()
			return a, expireToast(a.model.PushToast(msg.Err.Error(), true))
		}
		return a, tea.Tick(a.opts.AutoAdvance, func(time.Time) tea.Msg {
			return tui.AutoAdvanceMsg{Epoch: msg.Epoch}
		})

	case tui.AutoAdvanceMsg:
		// A retreat since the answer invalidates the tick.
		if msg.Epoch != a.opts.Machine.Epoch() {
			return a, nil
		}
		return a, a.advanceCmd()

	case tui.AdvanceResultMsg:
		return a.handleAdvance(msg)

	case tui.BackMsg:
		return a, a.retreatCmd()

	case tui.RetreatedMsg:
		if msg.Err != nil {
			text := msg.Err.Error()
			if errors.Is(msg.Err, assessment.ErrCannotRetreat) {
				text = "Already at the first question of this set"
			}
			return a, expireToast(a.model.PushToast(text, true))
		}
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.model.State {
	case tui.StateQuestion:
		if a.model.Overlay != nil {
			return a, nil
		}
		var cmd tea.Cmd
		a.question, cmd = a.question.Update(msg)
		return a, cmd

	case tui.StateError:
		if a.retry == retryNone {
			return a, tea.Quit
		}
		switch msg.String() {
		case tui.KeyEnter:
			return a, a.retryCmd()
		case "q", tui.KeyEsc:
			return a, tea.Quit
		}

	case tui.StateComplete:
		// Any key exits
		return a, tea.Quit
	}
	return a, nil
}

func (a *App) handleAdvance(msg tui.AdvanceResultMsg) (tea.Model, tea.Cmd) {
	a.model.Overlay = nil
	if msg.Err != nil {
		if errors.Is(msg.Err, assessment.ErrRequestInFlight) {
			return a, nil
		}
		a.fail(msg.Err, retryAdvance)
		return a, nil
	}

	switch msg.Outcome {
	case assessment.OutcomeCompleted:
		a.model.State = tui.StateComplete
		if a.opts.Reports != nil {
			a.saved = a.opts.Reports.Last()
		}
	case assessment.OutcomeStale:
		// The retreat that made the reply stale already re-rendered.
	}
	return a, nil
}

// fail moves to the error screen. Fatal errors cannot be retried.
func (a *App) fail(err error, op retryOp) {
	a.model.State = tui.StateError
	a.model.Err = err
	a.retry = op
	if assessment.IsFatal(err) {
		a.retry = retryNone
	}
}

func (a *App) retryCmd() tea.Cmd {
	op := a.retry
	a.retry = retryNone
	a.model.Err = nil
	a.model.State = tui.StateLoading
	if op == retryStart {
		return a.startCmd()
	}
	return a.advanceCmd()
}

// ============================================================================
// Machine Commands
// ============================================================================

func (a *App) startCmd() tea.Cmd {
	m, ctx, req, resume := a.opts.Machine, a.ctx, a.opts.Request, a.opts.Resume
	return func() tea.Msg {
		if resume {
			ok, err := m.Resume(ctx)
			if err != nil {
				return tui.StartedMsg{Err: err}
			}
			if ok {
				return tui.StartedMsg{Resumed: true, AtBoundary: m.AtBoundary()}
			}
		}
		return tui.StartedMsg{Err: m.Start(ctx, req)}
	}
}

func (a *App) answerCmd(option int) tea.Cmd {
	m := a.opts.Machine
	return func() tea.Msg {
		if err := m.RecordAnswer(option, 0); err != nil {
			return tui.AnsweredMsg{Err: err}
		}
		return tui.AnsweredMsg{Epoch: m.Epoch()}
	}
}

func (a *App) advanceCmd() tea.Cmd {
	m, ctx := a.opts.Machine, a.ctx
	return func() tea.Msg {
		outcome, err := m.Advance(ctx)
		return tui.AdvanceResultMsg{Outcome: outcome, Err: err}
	}
}

func (a *App) retreatCmd() tea.Cmd {
	m := a.opts.Machine
	return func() tea.Msg {
		return tui.RetreatedMsg{Err: m.Retreat()}
	}
}

func expireToast(id int) tea.Cmd {
	return tea.Tick(tui.ToastLifetime, func(time.Time) tea.Msg {
		return tui.ToastExpiredMsg{ID: id}
	})
}

// ============================================================================
// Rendering
// ============================================================================

// View renders the current application state.
func (a *App) View() string {
	var content string

	switch {
	case a.model.Overlay != nil && a.model.State != tui.StateComplete:
		content = a.renderOverlay()
	case a.model.State == tui.StateStarting, a.model.State == tui.StateLoading:
		content = a.renderLoadingView()
	case a.model.State == tui.StateQuestion:
		content = lipgloss.JoinVertical(lipgloss.Left,
			a.renderProgress(),
			a.question.View(),
			views.RenderConfidence(a.model.Confidence, a.model.Width),
		)
	case a.model.State == tui.StateError:
		content = a.renderErrorView()
	case a.model.State == tui.StateComplete:
		content = a.renderCompleteView()
	}

	if toasts := a.renderToasts(); toasts != "" {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "", toasts)
	}
	if a.model.CtrlCPending {
		content = lipgloss.JoinVertical(lipgloss.Left, content, "",
			tui.StatusBarStyle.Render("Press Ctrl+C again to exit. Your progress is saved."))
	}

	return a.centerContent(content)
}

// centerContent centers the given content both horizontally and vertically.
func (a *App) centerContent(content string) string {
	return lipgloss.Place(
		a.model.Width,
		a.model.Height,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}

func (a *App) renderProgress() string {
	p := a.model.Progress
	label := fmt.Sprintf("Question %d", p.Current)
	if p.Total > 0 {
		label = fmt.Sprintf("%d of %d", p.Current, p.Total)
	}
	return a.model.Bar.ViewAs(p.Ratio()) + "  " + tui.DimStyle.Render(label)
}

func (a *App) renderOverlay() string {
	n := a.model.Overlay.Notification
	var b strings.Builder
	b.WriteString(tui.SuccessStyle.Bold(true).Render(n.Title))
	if n.Text != "" {
		b.WriteString("\n\n")
		b.WriteString(n.Text)
	}
	return tui.OverlayStyle.Width(boxWidth(a.model.Width, 60)).Render(b.String())
}

// renderLoadingView renders the spinner while a request is in flight.
func (a *App) renderLoadingView() string {
	text := a.model.Loading
	if text == "" {
		text = "Preparing your assessment..."
	}

	var b strings.Builder
	b.WriteString(tui.TitleStyle.Render("Assessment"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s %s", a.model.Spinner.View(), text)

	parts := []string{}
	if a.model.Progress.Total > 0 {
		parts = append(parts, a.renderProgress())
	}
	parts = append(parts, tui.BoxStyle.Width(boxWidth(a.model.Width, 70)).Render(b.String()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (a *App) renderErrorView() string {
	var b strings.Builder
	b.WriteString(tui.ErrorStyle.Bold(true).Render("Something went wrong"))
	b.WriteString("\n\n")
	if a.model.Err != nil {
		b.WriteString(a.model.Err.Error())
	}
	b.WriteString("\n\n")
	if a.retry != retryNone {
		b.WriteString(tui.DimStyle.Render("Enter to retry · q to quit (progress is saved)"))
	} else {
		b.WriteString(tui.DimStyle.Render("Press any key to exit..."))
	}
	return tui.BoxStyle.BorderForeground(lipgloss.Color("#EF4444")).
		Width(boxWidth(a.model.Width, 70)).
		Render(b.String())
}

// renderCompleteView renders the completion summary.
func (a *App) renderCompleteView() string {
	var b strings.Builder
	if a.saved != nil {
		b.WriteString(report.FormatReport(a.saved, a.model.Confidence))
	} else {
		b.WriteString(tui.SuccessStyle.Render("Assessment complete!"))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(tui.DimStyle.Render("Press any key to exit..."))
	return tui.BoxStyle.Width(boxWidth(a.model.Width, 70)).Render(b.String())
}

func (a *App) renderToasts() string {
	if len(a.model.Toasts) == 0 {
		return ""
	}
	lines := make([]string, 0, len(a.model.Toasts))
	for _, t := range a.model.Toasts {
		style := tui.ToastStyle
		if t.Warning {
			style = tui.WarningToastStyle
		}
		lines = append(lines, style.Render(t.Text))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// boxWidth caps width at limit, leaving room for the border.
func boxWidth(width, limit int) int {
	if width-4 < limit {
		return width - 4
	}
	return limit
}
