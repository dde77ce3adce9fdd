// Package views provides TUI view components for the assessor application.
package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/tui"
)

// ============================================================================
// QuestionModel
// ============================================================================

// maxQuestionWidth is the maximum width for the question box.
const maxQuestionWidth = 90

// QuestionModel is the view model for a single question screen.
type QuestionModel struct {
	view     assessment.QuestionView
	selected int
	answered bool // true once an option was confirmed, until the next question
	width    int
	height   int
}

// NewQuestionModel creates a QuestionModel for the given question.
func NewQuestionModel(v assessment.QuestionView, width, height int) QuestionModel {
	return QuestionModel{
		view:   v,
		width:  width,
		height: height,
	}
}

// Init returns the initial command for the question view.
func (m QuestionModel) Init() tea.Cmd {
	return nil
}

// Selected returns the highlighted option index.
func (m QuestionModel) Selected() int {
	return m.selected
}

// Answered reports whether the question has been answered.
func (m QuestionModel) Answered() bool {
	return m.answered
}

// Question returns the question being shown.
func (m QuestionModel) Question() assessment.QuestionView {
	return m.view
}

// Unlock lets the question be answered again after a rejected answer.
func (m QuestionModel) Unlock() QuestionModel {
	m.answered = false
	return m
}

// Update handles messages for the question view.
func (m QuestionModel) Update(msg tea.Msg) (QuestionModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		keys := tui.DefaultKeyMap

		// Going back is allowed after answering: it retracts the answer
		// that is waiting to auto-advance.
		if key.Matches(msg, keys.Back) {
			return m, func() tea.Msg { return tui.BackMsg{} }
		}
		if m.answered {
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.selected < len(m.view.Question.Options)-1 {
				m.selected++
			}
			return m, nil

		case key.Matches(msg, keys.Choose):
			// Quick navigate by number (user must press Enter to confirm)
			idx := int(msg.String()[0] - '1')
			if idx >= 0 && idx < len(m.view.Question.Options) {
				m.selected = idx
			}
			return m, nil

		case key.Matches(msg, keys.Enter):
			return m.handleSelection()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

// handleSelection confirms the highlighted option.
func (m QuestionModel) handleSelection() (QuestionModel, tea.Cmd) {
	if m.selected < 0 || m.selected >= len(m.view.Question.Options) {
		return m, nil
	}
	m.answered = true
	idx := m.selected
	return m, func() tea.Msg {
		return tui.AnswerMsg{Option: idx}
	}
}

// View renders the question view.
func (m QuestionModel) View() string {
	var b strings.Builder
	q := m.view.Question

	// Header
	b.WriteString(tui.TitleStyle.Render(m.header()))
	b.WriteString("\n\n")

	// Question
	b.WriteString(tui.QuestionStyle.Render(q.Text))
	b.WriteString("\n")
	if q.Context != "" {
		b.WriteString(tui.DimStyle.Render(q.Context))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, opt := range q.Options {
		isSelected := i == m.selected

		var line strings.Builder
		if isSelected {
			line.WriteString("❯ ")
		} else {
			line.WriteString("  ")
		}
		line.WriteString(fmt.Sprintf("%d. ", i+1))

		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		switch {
		case isSelected && m.answered:
			line.WriteString(tui.SuccessStyle.Render(label + " ✓"))
		case isSelected:
			line.WriteString(tui.SelectedStyle.Render(label))
		default:
			line.WriteString(tui.NormalStyle.Render(label))
		}
		b.WriteString(line.String())
		b.WriteString("\n")
	}

	b.WriteString("\n")

	// Footer
	hints := []string{"Enter to answer", "↑↓ or 1-9 to choose"}
	if m.view.CanRetreat || m.answered {
		hints = append(hints, "←/b: Back")
	}
	b.WriteString(tui.DimStyle.Render(strings.Join(hints, " · ")))

	boxWidth := maxQuestionWidth
	if m.width-4 < boxWidth {
		boxWidth = m.width - 4
	}
	return tui.BoxStyle.Width(boxWidth).Render(b.String())
}

func (m QuestionModel) header() string {
	title := fmt.Sprintf("Question %d", m.view.Number)
	switch {
	case m.view.Stage != "":
		title += " · " + m.view.Stage
	case m.view.Phase == model.PhaseBaseline:
		title += " · Baseline"
	}
	return title
}
