package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/notify"
	"github.com/berth-dev/assessor/internal/report"
	"github.com/berth-dev/assessor/internal/tui"
)

type stubMachine struct {
	mu         sync.Mutex
	epoch      uint64
	resumeOK   bool
	boundary   bool
	starts     int
	resumes    int
	answers    []int
	advances   int
	retreats   int
	startErr   error
	answerErr  error
	advanceErr error
	outcome    assessment.Outcome
}

func (s *stubMachine) Start(context.Context, assessment.StartRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	return s.startErr
}

func (s *stubMachine) Resume(context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes++
	return s.resumeOK, nil
}

func (s *stubMachine) RecordAnswer(option int, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.answerErr != nil {
		return s.answerErr
	}
	s.answers = append(s.answers, option)
	return nil
}

func (s *stubMachine) Advance(context.Context) (assessment.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advances++
	return s.outcome, s.advanceErr
}

func (s *stubMachine) Retreat() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retreats++
	s.epoch++
	return nil
}

func (s *stubMachine) AtBoundary() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundary
}

func (s *stubMachine) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

type stubReports struct{ saved *report.Saved }

func (r stubReports) Last() *report.Saved { return r.saved }

func newTestApp(m *stubMachine) *App {
	return New(Options{Machine: m, AutoAdvance: time.Millisecond})
}

func question() tui.QuestionMsg {
	return tui.QuestionMsg{View: assessment.QuestionView{
		Question: model.Question{ID: "q1", Text: "Pick one", Options: []model.Option{
			{Label: "A"}, {Label: "B"}, {Label: "C"},
		}},
		Number: 1,
	}}
}

func send(t *testing.T, a *App, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := a.Update(msg)
	return cmd
}

func TestAnswerSchedulesAutoAdvanceWithEpoch(t *testing.T) {
	m := &stubMachine{epoch: 5}
	a := newTestApp(m)
	send(t, a, question())

	send(t, a, tea.KeyMsg{Type: tea.KeyDown})
	cmd := send(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	answer, ok := cmd().(tui.AnswerMsg)
	if !ok || answer.Option != 1 {
		t.Fatalf("got %#v, want AnswerMsg{Option: 1}", answer)
	}

	answered := send(t, a, answer)().(tui.AnsweredMsg)
	if answered.Err != nil || answered.Epoch != 5 {
		t.Fatalf("got %+v, want epoch 5", answered)
	}
	if len(m.answers) != 1 || m.answers[0] != 1 {
		t.Fatalf("machine answers = %v", m.answers)
	}

	tick := send(t, a, answered)().(tui.AutoAdvanceMsg)
	if tick.Epoch != 5 {
		t.Fatalf("tick epoch = %d, want 5", tick.Epoch)
	}

	result := send(t, a, tick)()
	if _, ok := result.(tui.AdvanceResultMsg); !ok {
		t.Fatalf("got %T, want AdvanceResultMsg", result)
	}
	if m.advances != 1 {
		t.Errorf("advances = %d, want 1", m.advances)
	}
}

func TestRetreatCancelsPendingAutoAdvance(t *testing.T) {
	m := &stubMachine{}
	a := newTestApp(m)
	send(t, a, question())

	answered := send(t, a, tui.AnswerMsg{Option: 0})().(tui.AnsweredMsg)
	tick := send(t, a, answered)().(tui.AutoAdvanceMsg)

	// The user goes back before the tick is delivered.
	retreated := send(t, a, tui.BackMsg{})()
	if r, ok := retreated.(tui.RetreatedMsg); !ok || r.Err != nil {
		t.Fatalf("got %#v", retreated)
	}
	send(t, a, retreated)

	if cmd := send(t, a, tick); cmd != nil {
		t.Error("stale tick should be ignored")
	}
	if m.advances != 0 {
		t.Errorf("advances = %d, want 0", m.advances)
	}
}

func TestRejectedAnswerUnlocksQuestion(t *testing.T) {
	m := &stubMachine{answerErr: assessment.ErrRequestInFlight}
	a := newTestApp(m)
	send(t, a, question())

	msg := send(t, a, tea.KeyMsg{Type: tea.KeyEnter})()
	answered := send(t, a, msg)().(tui.AnsweredMsg)
	if !errors.Is(answered.Err, assessment.ErrRequestInFlight) {
		t.Fatalf("got %v", answered.Err)
	}
	send(t, a, answered)

	if a.question.Answered() {
		t.Error("question should accept input again")
	}
	if len(a.model.Toasts) != 1 || !a.model.Toasts[0].Warning {
		t.Errorf("toasts = %+v", a.model.Toasts)
	}
}

func TestAdvanceFailureOffersRetry(t *testing.T) {
	m := &stubMachine{}
	a := newTestApp(m)
	send(t, a, question())

	send(t, a, tui.AdvanceResultMsg{Err: errors.New("submit: connection refused")})
	if a.model.State != tui.StateError {
		t.Fatalf("state = %v, want error", a.model.State)
	}
	if !strings.Contains(a.View(), "Enter to retry") {
		t.Error("error view should offer a retry")
	}

	cmd := send(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("Enter should retry")
	}
	cmd()
	if m.advances != 1 {
		t.Errorf("advances = %d, want 1", m.advances)
	}
}

func TestInFlightAdvanceIsIgnored(t *testing.T) {
	a := newTestApp(&stubMachine{})
	send(t, a, question())
	send(t, a, tui.AdvanceResultMsg{Err: assessment.ErrRequestInFlight})
	if a.model.State != tui.StateQuestion {
		t.Errorf("state = %v, want question", a.model.State)
	}
}

func TestFatalStartErrorQuits(t *testing.T) {
	a := newTestApp(&stubMachine{})
	send(t, a, tui.StartedMsg{Err: &assessment.SessionStartError{Reason: "no questions"}})
	if a.Err() == nil {
		t.Fatal("Err should be set")
	}

	cmd := send(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("fatal error screen should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("got %T, want QuitMsg", cmd())
	}
}

func TestStartResumesWhenCheckpointExists(t *testing.T) {
	tests := []struct {
		name         string
		resume       bool
		resumeOK     bool
		boundary     bool
		wantStarts   int
		wantBoundary bool
	}{
		{"fresh", false, false, false, 1, false},
		{"resumed", true, true, false, 0, false},
		{"resumed at boundary", true, true, true, 0, true},
		{"nothing to resume", true, false, false, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &stubMachine{resumeOK: tt.resumeOK, boundary: tt.boundary}
			a := New(Options{Machine: m, Resume: tt.resume})
			msg := a.startCmd()().(tui.StartedMsg)
			if msg.Err != nil {
				t.Fatalf("start: %v", msg.Err)
			}
			if m.starts != tt.wantStarts {
				t.Errorf("starts = %d, want %d", m.starts, tt.wantStarts)
			}
			if msg.Resumed != tt.resumeOK {
				t.Errorf("Resumed = %v, want %v", msg.Resumed, tt.resumeOK)
			}
			if msg.AtBoundary != tt.wantBoundary {
				t.Errorf("AtBoundary = %v, want %v", msg.AtBoundary, tt.wantBoundary)
			}
		})
	}
}

func TestResumeAtBoundaryAdvances(t *testing.T) {
	m := &stubMachine{advanceErr: errors.New("next: connection refused")}
	a := newTestApp(m)

	cmd := send(t, a, tui.StartedMsg{Resumed: true, AtBoundary: true})
	if cmd == nil {
		t.Fatal("resuming at a boundary should advance")
	}
	if a.model.State != tui.StateLoading {
		t.Errorf("state = %v, want loading", a.model.State)
	}
	result := cmd()
	if _, ok := result.(tui.AdvanceResultMsg); !ok || m.advances != 1 {
		t.Fatalf("got %T after %d advances", result, m.advances)
	}

	// A failed boundary request is retried with Enter like any other.
	send(t, a, result)
	if a.model.State != tui.StateError {
		t.Fatalf("state = %v, want error", a.model.State)
	}
	m.mu.Lock()
	m.advanceErr = nil
	m.outcome = assessment.OutcomeNewBatch
	m.mu.Unlock()
	retry := send(t, a, tea.KeyMsg{Type: tea.KeyEnter})
	if retry == nil {
		t.Fatal("Enter should retry the advance")
	}
	retry()
	if m.advances != 2 {
		t.Errorf("advances = %d, want 2", m.advances)
	}
}

func TestResumeMidBatchWaitsForQuestion(t *testing.T) {
	m := &stubMachine{}
	a := newTestApp(m)
	if cmd := send(t, a, tui.StartedMsg{Resumed: true}); cmd != nil {
		t.Error("a resumed question needs no advance")
	}
	if m.advances != 0 {
		t.Errorf("advances = %d, want 0", m.advances)
	}
}

func TestCompletionShowsReport(t *testing.T) {
	saved := &report.Saved{
		Dir:     "/tmp/reports/20260101-120000",
		Payload: model.Payload{Tier: model.TierStandard},
		Report:  []byte(`{"headline":"Curious and steady"}`),
	}
	a := New(Options{Machine: &stubMachine{}, Reports: stubReports{saved}})
	send(t, a, question())
	send(t, a, tui.AdvanceResultMsg{Outcome: assessment.OutcomeCompleted})

	if !a.Completed() {
		t.Fatal("app should be complete")
	}
	view := a.View()
	for _, want := range []string{"Assessment Complete", "Curious and steady"} {
		if !strings.Contains(view, want) {
			t.Errorf("complete view missing %q", want)
		}
	}
}

func TestOverlayBlocksInput(t *testing.T) {
	a := newTestApp(&stubMachine{})
	send(t, a, question())
	send(t, a, tui.OverlayMsg{Notification: notify.Notification{Kind: notify.KindStage, Title: "Stage 2", Text: "Going deeper"}})

	if cmd := send(t, a, tea.KeyMsg{Type: tea.KeyEnter}); cmd != nil {
		t.Error("keys should be ignored under an overlay")
	}
	if !strings.Contains(a.View(), "Going deeper") {
		t.Error("overlay should be rendered")
	}

	// The next rendered question replaces the overlay.
	send(t, a, question())
	if a.model.Overlay != nil {
		t.Error("question should clear the overlay")
	}
}

func TestToastsAndWarnings(t *testing.T) {
	a := newTestApp(&stubMachine{})
	send(t, a, question())

	cmd := send(t, a, tui.ToastMsg{Notification: notify.Notification{Kind: notify.KindMilestone, Text: "Five down!"}})
	if cmd == nil {
		t.Fatal("toast should schedule its expiry")
	}
	send(t, a, tui.WarningMsg{Text: "failed to save checkpoint"})

	view := a.View()
	if !strings.Contains(view, "Five down!") || !strings.Contains(view, "failed to save checkpoint") {
		t.Errorf("toasts not rendered:\n%s", view)
	}

	send(t, a, tui.ToastExpiredMsg{ID: a.model.Toasts[0].ID})
	if len(a.model.Toasts) != 1 {
		t.Errorf("toasts = %+v", a.model.Toasts)
	}
}

func TestDoubleCtrlCQuits(t *testing.T) {
	a := newTestApp(&stubMachine{})
	if cmd := send(t, a, tea.KeyMsg{Type: tea.KeyCtrlC}); cmd == nil || !a.model.CtrlCPending {
		t.Fatal("first Ctrl+C should arm the exit")
	}
	cmd := send(t, a, tea.KeyMsg{Type: tea.KeyCtrlC})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("second Ctrl+C: got %T, want QuitMsg", cmd())
	}
}

func TestProgressBarLabel(t *testing.T) {
	a := newTestApp(&stubMachine{})
	send(t, a, question())
	if view := a.View(); !strings.Contains(view, "Question 0") {
		t.Errorf("unknown total should show the count only:\n%s", view)
	}
	send(t, a, tui.ProgressMsg{Progress: model.Progress{Current: 35, Total: 70}})
	if view := a.View(); !strings.Contains(view, "35 of 70") {
		t.Errorf("progress label missing:\n%s", view)
	}
}
