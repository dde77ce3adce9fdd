package tui

import (
	"bytes"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/notify"
)

// Presenter forwards machine callbacks to a running program as messages.
// Messages sent while no program is attached are dropped.
type Presenter struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

var _ assessment.Presenter = (*Presenter)(nil)

// NewPresenter returns a detached Presenter.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// NewPresenterFunc returns a Presenter that delivers messages to send.
func NewPresenterFunc(send func(tea.Msg)) *Presenter {
	return &Presenter{send: send}
}

// Attach routes messages to p.
func (p *Presenter) Attach(prog *tea.Program) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.send = prog.Send
}

// Detach stops delivery.
func (p *Presenter) Detach() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.send = nil
}

func (p *Presenter) emit(msg tea.Msg) {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (p *Presenter) ShowQuestion(v assessment.QuestionView) { p.emit(QuestionMsg{View: v}) }
func (p *Presenter) ShowConfidence(c model.Confidence)      { p.emit(ConfidenceMsg{Confidence: c.Clone()}) }
func (p *Presenter) ShowProgress(pr model.Progress)         { p.emit(ProgressMsg{Progress: pr}) }
func (p *Presenter) ShowLoading(text string)                { p.emit(LoadingMsg{Text: text}) }
func (p *Presenter) Toast(n notify.Notification)            { p.emit(ToastMsg{Notification: n}) }
func (p *Presenter) Overlay(n notify.Notification)          { p.emit(OverlayMsg{Notification: n}) }

// Warnings returns a writer that turns each written line into a
// WarningMsg. Stderr is unusable while the alternate screen is active.
func (p *Presenter) Warnings() io.Writer {
	return &lineWriter{emit: p.emit}
}

type lineWriter struct {
	mu   sync.Mutex
	buf  bytes.Buffer
	emit func(tea.Msg)
}

func (w *lineWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(b)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// Keep the partial line for the next write.
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		text := strings.TrimPrefix(strings.TrimSpace(line), "Warning: ")
		if text != "" {
			w.emit(WarningMsg{Text: text})
		}
	}
	return len(b), nil
}
