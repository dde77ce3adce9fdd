// Package assessment holds the session state machine: it owns the
// question batch, the response ledgers and the phase, and decides when to
// talk to the backend.
package assessment

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/berth-dev/assessor/internal/checkpoint"
	"github.com/berth-dev/assessor/internal/log"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/notify"
	"github.com/berth-dev/assessor/internal/protocol"
	"github.com/berth-dev/assessor/internal/tracker"
)

// Backend is the part of the protocol client the machine drives.
type Backend interface {
	Initiate(ctx context.Context, req protocol.InitiateRequest) (*protocol.Opening, error)
	SubmitBaselineAndGetAdaptive(ctx context.Context, sessionID string, baseline []*model.Response) (*protocol.AdaptiveHandoff, error)
	SubmitAndGetNext(ctx context.Context, sessionID string, responses []*model.Response, single bool) (*protocol.Turn, error)
}

// ReportSink receives the payload of a finished session.
type ReportSink interface {
	Deliver(ctx context.Context, p model.Payload) error
}

// History mirrors session lifecycle and answers into a long-lived store.
type History interface {
	SessionStarted(remoteID string, tier model.Tier, mode model.Mode) error
	ResponseRecorded(remoteID string, r model.Response) error
	ResponseRetracted(remoteID string) error
	SessionEnded(remoteID, status string) error
}

// EventLogger is satisfied by *log.Logger.
type EventLogger interface {
	Append(event log.LogEvent) error
}

// QuestionView is everything a presenter needs to draw one question.
type QuestionView struct {
	Question   model.Question
	Number     int // 1-based, counted across the whole session
	Index      int // 0-based position in the current batch
	BatchSize  int
	Phase      model.Phase
	Mode       model.Mode
	Stage      string
	CanRetreat bool
	Epoch      uint64
}

// Presenter draws the session. Implementations must not call back into
// the Machine from these methods.
type Presenter interface {
	ShowQuestion(v QuestionView)
	ShowConfidence(c model.Confidence)
	ShowProgress(p model.Progress)
	ShowLoading(message string)
	notify.Sink
}

// Outcome says what Advance did.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeRendered
	OutcomeNewBatch
	OutcomePhaseChanged
	OutcomeCompleted
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeNewBatch:
		return "new-batch"
	case OutcomePhaseChanged:
		return "phase-changed"
	case OutcomeCompleted:
		return "completed"
	case OutcomeStale:
		return "stale"
	default:
		return "none"
	}
}

// Session is the identity and position of the running assessment.
type Session struct {
	ID          string
	Tier        model.Tier
	Mode        model.Mode
	Phase       model.Phase
	StartTime   time.Time
	Stage       string
	ServerPhase string
	Profile     map[string]any
}

// StartRequest carries the user's choices for a new session.
type StartRequest struct {
	Tier                      model.Tier
	Concerns                  []string
	Demographics              map[string]string
	PreferIntelligentSelector bool
}

// Snapshot is a read-only view of the machine for UIs and commands.
type Snapshot struct {
	Active    bool
	Session   Session
	Cursor    int
	BatchLen  int
	Responses int
	Baseline  int
	Adaptive  int
	Unsent    int
	Progress  model.Progress
	Epoch     uint64
}

// Deps wires a Machine. Backend, Store and Presenter are required.
type Deps struct {
	Backend    Backend
	Store      checkpoint.Store
	Presenter  Presenter
	Tracker    *tracker.Tracker
	Dispatcher *notify.Dispatcher
	Reports    ReportSink
	History    History
	Logger     EventLogger
	Now        func() time.Time
	Warnings   io.Writer
}

// Machine is the session state machine. It is safe for concurrent use;
// at most one backend request is in flight at a time.
type Machine struct {
	backend    Backend
	store      checkpoint.Store
	presenter  Presenter
	tracker    *tracker.Tracker
	dispatcher *notify.Dispatcher
	reports    ReportSink
	history    History
	logger     EventLogger
	now        func() time.Time
	warnings   io.Writer

	inflight *semaphore.Weighted
	epoch    atomic.Uint64

	mu                sync.Mutex
	session           *Session
	batch             Batch
	ledger            Ledger
	shownAt           time.Time
	pendingCompletion bool
}

// New creates a Machine. Optional dependencies get working defaults.
func New(d Deps) *Machine {
	if d.Tracker == nil {
		d.Tracker = tracker.New()
	}
	if d.Dispatcher == nil {
		d.Dispatcher = notify.New(d.Presenter, notify.Options{})
	}
	if d.Logger == nil {
		d.Logger = log.Discard{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Warnings == nil {
		d.Warnings = os.Stderr
	}

	return &Machine{
		backend:    d.Backend,
		store:      d.Store,
		presenter:  d.Presenter,
		tracker:    d.Tracker,
		dispatcher: d.Dispatcher,
		reports:    d.Reports,
		history:    d.History,
		logger:     d.Logger,
		now:        d.Now,
		warnings:   d.Warnings,
		inflight:   semaphore.NewWeighted(1),
	}
}

// DetectMode picks the protocol mode from the shape of the opening reply.
func DetectMode(s protocol.Shape) model.Mode {
	switch {
	case strings.EqualFold(s.Mode, "intelligent") || s.SingleQuestionMode:
		return model.ModeIntelligent
	case s.HasCurrentStage:
		return model.ModeMultiStage
	default:
		return model.ModeLegacy
	}
}

// Epoch returns the current request epoch. It changes on every retreat,
// resume and abandon.
func (m *Machine) Epoch() uint64 {
	return m.epoch.Load()
}

// Snapshot returns the current state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Cursor:    m.batch.Cursor(),
		BatchLen:  m.batch.Len(),
		Responses: m.ledger.Len(),
		Baseline:  len(m.ledger.baseline),
		Adaptive:  len(m.ledger.adaptive),
		Unsent:    len(m.ledger.Unsent()),
		Progress:  m.tracker.Progress(),
		Epoch:     m.epoch.Load(),
	}
	if m.session != nil {
		s.Active = m.session.Phase != model.PhaseComplete
		s.Session = *m.session
	}
	return s
}

// Responses returns a copy of the all-ledger.
func (m *Machine) Responses() []model.Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger.Values()
}

// activeLocked reports why the session cannot take input, if it cannot.
func (m *Machine) activeLocked() error {
	switch {
	case m.session == nil:
		return ErrNoSession
	case m.session.Phase == model.PhaseComplete:
		return ErrSessionComplete
	}
	return nil
}

// render shows the question under the cursor together with the cached
// confidence and progress. An exhausted batch renders nothing.
func (m *Machine) render() {
	m.mu.Lock()
	if m.session == nil {
		m.mu.Unlock()
		return
	}
	q, ok := m.batch.Current()
	if !ok {
		m.mu.Unlock()
		return
	}
	m.shownAt = m.now()
	m.tracker.SetCurrent(m.ledger.Len() + 1)
	view := QuestionView{
		Question:   q,
		Number:     m.ledger.Len() + 1,
		Index:      m.batch.Cursor(),
		BatchSize:  m.batch.Len(),
		Phase:      m.session.Phase,
		Mode:       m.session.Mode,
		Stage:      m.session.Stage,
		CanRetreat: m.batch.Cursor() > 0,
		Epoch:      m.epoch.Load(),
	}
	m.mu.Unlock()

	m.presenter.ShowQuestion(view)
	m.tracker.Reapply(m.presenter)
}

// saveLocked writes the checkpoint. Failures are reported, not returned:
// the in-memory session stays authoritative.
func (m *Machine) saveLocked() {
	cp := &checkpoint.Checkpoint{
		Version:        checkpoint.Version,
		SessionID:      m.session.ID,
		Tier:           m.session.Tier,
		Mode:           m.session.Mode,
		Phase:          m.session.Phase,
		Stage:          m.session.Stage,
		StartTime:      m.session.StartTime,
		CurrentIndex:   m.batch.Cursor(),
		TotalResponses: m.ledger.Len(),
		Total:          m.tracker.Progress().Total,
		Batch:          m.batch.Questions(),
		Responses:      m.ledger.Values(),
		Confidence:     m.tracker.CurrentOrLast(),

		PendingCompletion: m.pendingCompletion,
	}
	if err := m.store.Save(cp); err != nil {
		m.warn("failed to save checkpoint: %v", err)
		m.logEvent(log.LogEvent{Event: log.EventCheckpointFailed, SessionID: m.session.ID, Error: err.Error()})
	}
}

// applyTurnLocked folds the durable parts of a reply into the session.
func (m *Machine) applyTurnLocked(t protocol.Turn) {
	m.tracker.Ingest(t.Confidence)
	if t.Progress != nil {
		m.tracker.SetTotal(t.Progress.Total)
	}
	if t.StageLabel != "" {
		m.session.Stage = t.StageLabel
	}
	if t.Phase != "" {
		m.session.ServerPhase = t.Phase
	}
}

// dispatch hands the ephemeral parts of a reply to the notifier. A
// cancelled stage dwell only shortens the overlay; it is logged and the
// turn is still applied.
func (m *Machine) dispatch(ctx context.Context, sessionID string, t protocol.Turn) {
	err := m.dispatcher.Turn(ctx, notify.TurnSignals{
		StageChanged:    t.StageChanged,
		StageLabel:      t.StageLabel,
		StageMessage:    t.StageMessage,
		PhaseMessage:    t.PhaseMessage,
		ProgressMessage: t.ProgressMessage,
		Skips:           t.SkipNotices,
	})
	if err != nil {
		m.logEvent(log.LogEvent{
			Event:     log.EventStageInterrupted,
			SessionID: sessionID,
			Stage:     t.StageLabel,
			Error:     err.Error(),
		})
	}
}

func (m *Machine) logEvent(e log.LogEvent) {
	if e.Time.IsZero() {
		e.Time = m.now().UTC()
	}
	if err := m.logger.Append(e); err != nil {
		m.warn("failed to log %s: %v", e.Event, err)
	}
}

func (m *Machine) logFailure(op, sessionID string, err error) {
	m.logEvent(log.LogEvent{Event: log.EventRequestFailed, SessionID: sessionID, Op: op, Error: err.Error()})
}

func (m *Machine) warn(format string, args ...any) {
	fmt.Fprintf(m.warnings, "Warning: "+format+"\n", args...)
}

func cloneResponses(in []*model.Response) []*model.Response {
	out := make([]*model.Response, len(in))
	for i, r := range in {
		c := *r
		out[i] = &c
	}
	return out
}

// copySent carries acknowledgements from the request clones back to the
// ledger entries they were made from.
func copySent(originals, clones []*model.Response) {
	for i := range originals {
		if clones[i].Sent {
			originals[i].Sent = true
		}
	}
}
