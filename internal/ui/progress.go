// Package ui provides the line-oriented presenter used when stdout is not
// a terminal or when --plain is given.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/notify"
)

const defaultWidth = 72

// LinePresenter prints the session as plain lines. ANSI styling is used
// only when the output is a terminal.
type LinePresenter struct {
	mu         sync.Mutex
	out        io.Writer
	isTTY      bool
	width      int
	current    assessment.QuestionView
	hasCurrent bool
	progress   model.Progress
	lastConf   string
}

var _ assessment.Presenter = (*LinePresenter)(nil)

// NewLinePresenter creates a presenter writing to out.
func NewLinePresenter(out io.Writer) *LinePresenter {
	p := &LinePresenter{out: out, width: defaultWidth}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.isTTY = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 {
			p.width = min(w, 100)
		}
	}
	return p
}

// Current returns the question on screen, if any.
func (p *LinePresenter) Current() (assessment.QuestionView, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.hasCurrent
}

// Printf writes a line of driver output.
func (p *LinePresenter) Printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format+"\n", args...)
}

// ShowQuestion prints the question with numbered options.
func (p *LinePresenter) ShowQuestion(v assessment.QuestionView) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current, p.hasCurrent = v, true

	var buf strings.Builder
	buf.WriteString("\n")
	buf.WriteString(p.dim(strings.Repeat("─", p.width)))
	buf.WriteString("\n")

	header := fmt.Sprintf("Question %d", v.Number)
	if p.progress.Total > 0 {
		header = fmt.Sprintf("Question %d of %d", v.Number, p.progress.Total)
	}
	if v.Stage != "" {
		header += " · " + v.Stage
	} else if v.Phase == model.PhaseBaseline {
		header += " · Baseline"
	}
	buf.WriteString(p.bold(header))
	buf.WriteString("\n\n")
	buf.WriteString(v.Question.Text)
	buf.WriteString("\n")
	if v.Question.Context != "" {
		buf.WriteString(p.dim(v.Question.Context))
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	for i, opt := range v.Question.Options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		fmt.Fprintf(&buf, "  %d. %s\n", i+1, label)
	}

	hint := fmt.Sprintf("Answer 1-%d", len(v.Question.Options))
	if v.CanRetreat {
		hint += ", b to go back"
	}
	hint += ", q to quit"
	buf.WriteString("\n")
	buf.WriteString(p.dim(hint))
	buf.WriteString("\n")
	fmt.Fprint(p.out, buf.String())
}

// ShowConfidence prints a one-line summary when the snapshot changes.
func (p *LinePresenter) ShowConfidence(c model.Confidence) {
	if c.Empty() {
		return
	}
	parts := make([]string, 0, len(c))
	for _, trait := range c.Traits() {
		tc := c[trait]
		parts = append(parts, fmt.Sprintf("%s %.0f%%", notify.DisplayName(trait), tc.Confidence))
	}
	line := "Confidence: " + strings.Join(parts, ", ")

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.lastConf {
		return
	}
	p.lastConf = line
	fmt.Fprintln(p.out, p.dim(line))
}

// ShowProgress records progress for the next question header.
func (p *LinePresenter) ShowProgress(pr model.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.progress = pr
}

// ShowLoading prints the loading message.
func (p *LinePresenter) ShowLoading(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hasCurrent = false
	fmt.Fprintln(p.out, p.dim("… "+text))
}

// Toast prints a transient notification.
func (p *LinePresenter) Toast(n notify.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	text := n.Text
	if n.Title != "" {
		text = n.Title + ": " + text
	}
	fmt.Fprintf(p.out, "  %s %s\n", p.color("35", "*"), text)
}

// Overlay prints a stage banner.
func (p *LinePresenter) Overlay(n notify.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rule := strings.Repeat("═", p.width)
	fmt.Fprintf(p.out, "\n%s\n  %s\n", p.color("32", rule), p.bold(n.Title))
	if n.Text != "" {
		fmt.Fprintf(p.out, "  %s\n", n.Text)
	}
	fmt.Fprintln(p.out, p.color("32", rule))
}

func (p *LinePresenter) bold(s string) string { return p.color("1", s) }
func (p *LinePresenter) dim(s string) string  { return p.color("90", s) }

func (p *LinePresenter) color(code, s string) string {
	if !p.isTTY {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}
