package assessment

import (
	"context"
	"fmt"
	"time"

	"github.com/berth-dev/assessor/internal/log"
	"github.com/berth-dev/assessor/internal/model"
	"github.com/berth-dev/assessor/internal/protocol"
)

// Final statuses passed to History.SessionEnded.
const (
	StatusComplete  = "complete"
	StatusAbandoned = "abandoned"
)

// Start initiates a new session with the backend and shows its first
// question. The protocol mode is fixed here from the opening reply.
func (m *Machine) Start(ctx context.Context, req StartRequest) error {
	if !m.inflight.TryAcquire(1) {
		return ErrRequestInFlight
	}
	defer m.inflight.Release(1)

	m.mu.Lock()
	if m.session != nil && m.session.Phase != model.PhaseComplete {
		m.mu.Unlock()
		return ErrSessionActive
	}
	m.mu.Unlock()

	tier, err := model.ParseTier(string(req.Tier))
	if err != nil {
		return err
	}

	m.presenter.ShowLoading("Preparing your assessment...")
	opening, err := m.backend.Initiate(ctx, protocol.InitiateRequest{
		Tier:                      tier,
		Concerns:                  req.Concerns,
		Demographics:              req.Demographics,
		PreferIntelligentSelector: req.PreferIntelligentSelector,
	})
	if err != nil {
		m.logFailure(protocol.OpInitiate, "", err)
		return fmt.Errorf("initiate session: %w", err)
	}
	if len(opening.Questions) == 0 {
		err := &SessionStartError{SessionID: opening.SessionID, Reason: "the opening reply carried no questions"}
		m.logFailure(protocol.OpInitiate, opening.SessionID, err)
		return err
	}

	mode := DetectMode(opening.Shape)
	phase := model.PhaseAdaptive
	if mode == model.ModeLegacy {
		phase = model.PhaseBaseline
	}

	m.mu.Lock()
	m.session = &Session{
		ID:        opening.SessionID,
		Tier:      tier,
		Mode:      mode,
		Phase:     phase,
		StartTime: m.now(),
	}
	m.batch = NewBatch(opening.Questions, 0)
	m.ledger = Ledger{}
	m.pendingCompletion = false
	m.tracker.Reset()
	m.tracker.SetTotal(opening.TotalQuestions)
	m.applyTurnLocked(opening.Turn)
	m.saveLocked()
	total := m.tracker.Progress().Total
	m.mu.Unlock()

	if m.history != nil {
		if err := m.history.SessionStarted(opening.SessionID, tier, mode); err != nil {
			m.warn("failed to record session history: %v", err)
		}
	}
	m.logEvent(log.LogEvent{
		Event:     log.EventSessionStarted,
		SessionID: opening.SessionID,
		Tier:      string(tier),
		Mode:      mode.String(),
		Phase:     string(phase),
		Questions: len(opening.Questions),
		Total:     total,
	})

	m.dispatch(ctx, opening.SessionID, opening.Turn)
	m.render()
	return nil
}

// Resume restores the session saved in the checkpoint store without
// contacting the backend. It returns false when there is nothing to resume.
func (m *Machine) Resume(ctx context.Context) (bool, error) {
	if !m.inflight.TryAcquire(1) {
		return false, ErrRequestInFlight
	}
	defer m.inflight.Release(1)

	cp, err := m.store.Load()
	if err != nil {
		return false, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		return false, nil
	}
	if cp.SessionID == "" || cp.Phase == model.PhaseComplete {
		if err := m.store.Clear(); err != nil {
			m.warn("failed to clear checkpoint: %v", err)
		}
		return false, nil
	}

	m.mu.Lock()
	if m.session != nil && m.session.Phase != model.PhaseComplete {
		m.mu.Unlock()
		return false, ErrSessionActive
	}
	m.session = &Session{
		ID:        cp.SessionID,
		Tier:      cp.Tier,
		Mode:      cp.Mode,
		Phase:     cp.Phase,
		StartTime: cp.StartTime,
		Stage:     cp.Stage,
	}
	m.ledger = NewLedger(cp.Responses)
	m.batch = NewBatch(cp.Batch, cp.CurrentIndex)
	m.pendingCompletion = cp.PendingCompletion
	m.tracker.Reset()
	m.tracker.SetTotal(cp.Total)
	m.tracker.Ingest(cp.Confidence)
	m.epoch.Add(1)
	atBoundary := m.atBoundaryLocked()
	m.mu.Unlock()

	m.dispatcher.SeedStage(cp.Stage)

	e := log.LogEvent{
		Event:     log.EventSessionResumed,
		SessionID: cp.SessionID,
		Mode:      cp.Mode.String(),
		Phase:     string(cp.Phase),
		Stage:     cp.Stage,
		Responses: len(cp.Responses),
		Total:     cp.Total,
	}
	if atBoundary {
		e.Data = map[string]interface{}{
			"at_boundary":        true,
			"pending_completion": cp.PendingCompletion,
		}
	}
	m.logEvent(e)

	// The whole batch was answered before the checkpoint was written: there
	// is no question to show until the next Advance crosses the boundary.
	if atBoundary {
		m.tracker.Reapply(m.presenter)
		m.presenter.ShowLoading("Picking up where you left off...")
		return true, nil
	}
	m.render()
	return true, nil
}

// AtBoundary reports whether the active session has no question to show
// because its batch is fully answered or its report is still owed. The
// next Advance fetches more questions or completes the session.
func (m *Machine) AtBoundary() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.atBoundaryLocked()
}

func (m *Machine) atBoundaryLocked() bool {
	if m.activeLocked() != nil {
		return false
	}
	return m.pendingCompletion || m.batch.Exhausted()
}

// RecordAnswer records the option at optionIndex for the displayed
// question and moves the cursor on. elapsed is the time the user took;
// zero means "measure it from when the question was shown".
func (m *Machine) RecordAnswer(optionIndex int, elapsed time.Duration) error {
	if !m.inflight.TryAcquire(1) {
		return ErrRequestInFlight
	}
	defer m.inflight.Release(1)

	m.mu.Lock()
	if err := m.activeLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	q, ok := m.batch.Current()
	if !ok {
		m.mu.Unlock()
		return ErrNoQuestion
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		m.mu.Unlock()
		return ErrNoSelection
	}
	if elapsed <= 0 && !m.shownAt.IsZero() {
		elapsed = m.now().Sub(m.shownAt)
	}

	opt := q.Options[optionIndex]
	answer := opt.Value
	if answer == "" {
		answer = opt.Label
	}
	r := &model.Response{
		QuestionID:     q.ID,
		Answer:         answer,
		Score:          model.ResolveScore(opt),
		ResponseTimeMs: elapsed.Milliseconds(),
		Phase:          m.session.Phase,
	}
	m.ledger.Append(r)
	m.batch.next()
	m.saveLocked()
	sessionID := m.session.ID
	answered := m.ledger.Len()
	recorded := *r
	m.mu.Unlock()

	if m.history != nil {
		if err := m.history.ResponseRecorded(sessionID, recorded); err != nil {
			m.warn("failed to record response history: %v", err)
		}
	}
	score := recorded.Score
	m.logEvent(log.LogEvent{
		Event:      log.EventAnswerRecorded,
		SessionID:  sessionID,
		Phase:      string(recorded.Phase),
		QuestionID: recorded.QuestionID,
		Score:      &score,
		Responses:  answered,
		DurationMs: recorded.ResponseTimeMs,
	})
	m.dispatcher.Milestone(answered)
	return nil
}

// Advance moves the session forward: it re-renders while the batch has
// unanswered questions and crosses the phase boundary once it does not.
func (m *Machine) Advance(ctx context.Context) (Outcome, error) {
	if !m.inflight.TryAcquire(1) {
		return OutcomeNone, ErrRequestInFlight
	}
	defer m.inflight.Release(1)

	m.mu.Lock()
	if err := m.activeLocked(); err != nil {
		m.mu.Unlock()
		return OutcomeNone, err
	}
	if m.pendingCompletion {
		m.mu.Unlock()
		return m.finish(ctx)
	}
	if !m.batch.Exhausted() {
		m.mu.Unlock()
		m.render()
		return OutcomeRendered, nil
	}
	m.mu.Unlock()

	return m.onPhaseBoundary(ctx)
}

// onPhaseBoundary runs when every question in the batch is answered.
func (m *Machine) onPhaseBoundary(ctx context.Context) (Outcome, error) {
	m.mu.Lock()
	sess := *m.session
	epoch := m.epoch.Load()

	if sess.Phase == model.PhaseBaseline {
		originals := m.ledger.Baseline()
		m.mu.Unlock()
		return m.submitBaseline(ctx, sess, epoch, originals)
	}

	total := m.tracker.Progress().Total
	if total > 0 && m.ledger.Len() >= total {
		m.mu.Unlock()
		return m.finish(ctx)
	}
	originals := m.ledger.Unsent()
	m.mu.Unlock()
	return m.submitAdaptive(ctx, sess, epoch, originals)
}

func (m *Machine) submitBaseline(ctx context.Context, sess Session, epoch uint64, originals []*model.Response) (Outcome, error) {
	clones := cloneResponses(originals)
	m.presenter.ShowLoading("Analyzing your baseline answers...")
	handoff, err := m.backend.SubmitBaselineAndGetAdaptive(ctx, sess.ID, clones)
	if err != nil {
		m.logFailure(protocol.OpBaseline, sess.ID, err)
		return OutcomeNone, fmt.Errorf("submit baseline: %w", err)
	}

	m.mu.Lock()
	if m.staleLocked(sess.ID, epoch) {
		m.mu.Unlock()
		m.logEvent(log.LogEvent{Event: log.EventStaleReply, SessionID: sess.ID, Op: protocol.OpBaseline})
		return OutcomeStale, nil
	}
	copySent(originals, clones)
	m.session.Phase = model.PhaseAdaptive
	m.session.Profile = handoff.Profile
	m.applyTurnLocked(handoff.Turn)
	if handoff.Complete || len(handoff.Questions) == 0 {
		m.mu.Unlock()
		return m.finish(ctx)
	}
	m.batch = NewBatch(handoff.Questions, 0)
	m.saveLocked()
	answered := m.ledger.Len()
	m.mu.Unlock()

	m.logEvent(log.LogEvent{
		Event:     log.EventPhaseChanged,
		SessionID: sess.ID,
		Phase:     string(model.PhaseAdaptive),
		Questions: len(handoff.Questions),
		Responses: answered,
	})
	m.dispatch(ctx, sess.ID, handoff.Turn)
	m.render()
	return OutcomePhaseChanged, nil
}

func (m *Machine) submitAdaptive(ctx context.Context, sess Session, epoch uint64, originals []*model.Response) (Outcome, error) {
	clones := cloneResponses(originals)
	single := sess.Mode == model.ModeIntelligent
	m.presenter.ShowLoading("Choosing your next questions...")
	turn, err := m.backend.SubmitAndGetNext(ctx, sess.ID, clones, single)
	if err != nil {
		m.logFailure(protocol.OpNext, sess.ID, err)
		return OutcomeNone, fmt.Errorf("submit answers: %w", err)
	}

	m.mu.Lock()
	if m.staleLocked(sess.ID, epoch) {
		m.mu.Unlock()
		m.logEvent(log.LogEvent{Event: log.EventStaleReply, SessionID: sess.ID, Op: protocol.OpNext})
		return OutcomeStale, nil
	}
	copySent(originals, clones)
	m.applyTurnLocked(*turn)
	if turn.Complete || len(turn.Questions) == 0 {
		m.mu.Unlock()
		return m.finish(ctx)
	}
	m.batch = NewBatch(turn.Questions, 0)
	m.saveLocked()
	answered := m.ledger.Len()
	stage := m.session.Stage
	m.mu.Unlock()

	m.logEvent(log.LogEvent{
		Event:     log.EventBatchReceived,
		SessionID: sess.ID,
		Phase:     string(sess.Phase),
		Stage:     stage,
		Questions: len(turn.Questions),
		Responses: answered,
	})
	m.dispatch(ctx, sess.ID, *turn)
	m.render()
	return OutcomeNewBatch, nil
}

// staleLocked reports whether a reply issued at epoch for sessionID must
// be discarded.
func (m *Machine) staleLocked(sessionID string, epoch uint64) bool {
	return m.session == nil || m.session.ID != sessionID || m.epoch.Load() != epoch
}

// Retreat undoes the most recent answer in the current batch and shows
// that question again. It never contacts the backend.
func (m *Machine) Retreat() error {
	m.mu.Lock()
	if err := m.activeLocked(); err != nil {
		m.mu.Unlock()
		return err
	}
	if m.pendingCompletion || m.batch.Cursor() == 0 {
		m.mu.Unlock()
		return ErrCannotRetreat
	}
	r, ok := m.ledger.Pop()
	if !ok {
		m.mu.Unlock()
		return ErrCannotRetreat
	}
	m.batch.back()
	m.epoch.Add(1)
	m.saveLocked()
	sessionID := m.session.ID
	answered := m.ledger.Len()
	m.mu.Unlock()

	if m.history != nil {
		if err := m.history.ResponseRetracted(sessionID); err != nil {
			m.warn("failed to retract response history: %v", err)
		}
	}
	m.logEvent(log.LogEvent{
		Event:      log.EventAnswerRetracted,
		SessionID:  sessionID,
		QuestionID: r.QuestionID,
		Responses:  answered,
	})
	m.render()
	return nil
}

// Complete ends the session and hands its payload to the report sink.
func (m *Machine) Complete(ctx context.Context) (*model.Payload, error) {
	if !m.inflight.TryAcquire(1) {
		return nil, ErrRequestInFlight
	}
	defer m.inflight.Release(1)
	return m.complete(ctx)
}

func (m *Machine) finish(ctx context.Context) (Outcome, error) {
	if _, err := m.complete(ctx); err != nil {
		return OutcomeNone, err
	}
	return OutcomeCompleted, nil
}

// complete clears the checkpoint, builds the payload and delivers it. A
// failed delivery restores the checkpoint and leaves the session at the
// boundary so the next Advance retries.
func (m *Machine) complete(ctx context.Context) (*model.Payload, error) {
	m.mu.Lock()
	if err := m.activeLocked(); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	m.pendingCompletion = true
	now := m.now()
	elapsed := now.Sub(m.session.StartTime)
	payload := &model.Payload{
		Responses: m.ledger.Values(),
		Tier:      m.session.Tier,
		Duration:  int64(elapsed / time.Second),
		Metadata: model.Metadata{
			CompletedAt:      now.UTC(),
			TotalQuestions:   m.ledger.Len(),
			SessionID:        m.session.ID,
			Tier:             m.session.Tier,
			CompletionTimeMs: elapsed.Milliseconds(),
		},
	}
	sessionID := m.session.ID
	m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.warn("failed to clear checkpoint: %v", err)
	}

	if m.reports != nil {
		m.presenter.ShowLoading("Generating your report...")
		if err := m.reports.Deliver(ctx, *payload); err != nil {
			m.mu.Lock()
			if m.session != nil {
				m.saveLocked()
			}
			m.mu.Unlock()
			m.logFailure(protocol.OpReport, sessionID, err)
			return nil, fmt.Errorf("deliver report: %w", err)
		}
	}

	m.mu.Lock()
	if m.session != nil {
		m.session.Phase = model.PhaseComplete
	}
	m.pendingCompletion = false
	m.mu.Unlock()

	if m.history != nil {
		if err := m.history.SessionEnded(sessionID, StatusComplete); err != nil {
			m.warn("failed to record session history: %v", err)
		}
	}
	m.logEvent(log.LogEvent{
		Event:      log.EventSessionComplete,
		SessionID:  sessionID,
		Tier:       string(payload.Tier),
		Responses:  len(payload.Responses),
		DurationMs: payload.Metadata.CompletionTimeMs,
	})
	return payload, nil
}

// Abandon drops the running session, or the saved one when nothing is
// running, and clears the checkpoint.
func (m *Machine) Abandon() error {
	m.mu.Lock()
	var sessionID string
	if m.session != nil && m.session.Phase != model.PhaseComplete {
		sessionID = m.session.ID
	}
	m.session = nil
	m.batch = Batch{}
	m.ledger = Ledger{}
	m.pendingCompletion = false
	m.epoch.Add(1)
	m.mu.Unlock()

	if sessionID == "" {
		cp, err := m.store.Load()
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if cp == nil {
			return ErrNoSession
		}
		sessionID = cp.SessionID
	}

	if err := m.store.Clear(); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	if m.history != nil {
		if err := m.history.SessionEnded(sessionID, StatusAbandoned); err != nil {
			m.warn("failed to record session history: %v", err)
		}
	}
	m.logEvent(log.LogEvent{Event: log.EventSessionAbandoned, SessionID: sessionID})
	return nil
}
