package tui

import (
	"github.com/berth-dev/assessor/internal/assessment"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/notify"
)

// ============================================================================
// Presenter Messages
// ============================================================================

// QuestionMsg carries the question the machine just rendered.
type QuestionMsg struct {
	View assessment.QuestionView
}

// ConfidenceMsg carries the latest confidence snapshot.
type ConfidenceMsg struct {
	Confidence model.Confidence
}

// ProgressMsg carries the progress counter.
type ProgressMsg struct {
	Progress model.Progress
}

// LoadingMsg signals that a backend request has started.
type LoadingMsg struct {
	Text string
}

// ToastMsg carries a transient notification.
type ToastMsg struct {
	Notification notify.Notification
}

// OverlayMsg carries a blocking stage announcement.
type OverlayMsg struct {
	Notification notify.Notification
}

// WarningMsg carries one line written to the presenter's warning stream.
type WarningMsg struct {
	Text string
}

// ============================================================================
// View Messages
// ============================================================================

// AnswerMsg is emitted by the question view when an option is confirmed.
type AnswerMsg struct {
	Option int
}

// BackMsg is emitted by the question view to step back one question.
type BackMsg struct{}

// ============================================================================
// Machine Results
// ============================================================================

// StartedMsg reports the result of starting or resuming a session.
// AtBoundary is set when the resumed batch was already fully answered.
type StartedMsg struct {
	Resumed    bool
	AtBoundary bool
	Err        error
}

// AnsweredMsg reports the result of recording an answer. Epoch is the
// machine epoch observed right after the answer was recorded.
type AnsweredMsg struct {
	Epoch uint64
	Err   error
}

// AutoAdvanceMsg fires after the auto-advance delay. It is ignored when
// the machine epoch has moved past Epoch.
type AutoAdvanceMsg struct {
	Epoch uint64
}

// AdvanceResultMsg reports the result of Advance.
type AdvanceResultMsg struct {
	Outcome assessment.Outcome
	Err     error
}

// RetreatedMsg reports the result of Retreat.
type RetreatedMsg struct {
	Err error
}

// ============================================================================
// Timers
// ============================================================================

// ToastExpiredMsg removes the toast with the given id.
type ToastExpiredMsg struct {
	ID int
}

// OverlayExpiredMsg hides the overlay with the given id.
type OverlayExpiredMsg struct {
	ID int
}

// CtrlCResetMsg resets the Ctrl+C pending state after timeout.
type CtrlCResetMsg struct{}
