// Package tracker caches the last confidence snapshot and the progress
// ratio so they can be redrawn after any UI rebuild.
package tracker

import (
	"sync"

	"github.com/berth-dev/assessor/internal/model"
)

// PanelSink receives the cached state when it is re-applied.
type PanelSink interface {
	ShowConfidence(c model.Confidence)
	ShowProgress(p model.Progress)
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu         sync.RWMutex
	confidence model.Confidence
	progress   model.Progress
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{}
}

// Ingest stores c if it carries any traits. Empty snapshots mean
// "unchanged" and are ignored.
func (t *Tracker) Ingest(c model.Confidence) {
	if c.Empty() {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.confidence = c.Clone()
}

// CurrentOrLast returns the freshest non-empty snapshot, or nil if none
// has been seen yet.
func (t *Tracker) CurrentOrLast() model.Confidence {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.confidence.Clone()
}

// SetTotal updates the expected question count. Non-positive totals are ignored.
func (t *Tracker) SetTotal(total int) {
	if total <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progress.Total = total
}

// SetCurrent sets the current position, capped at the total when one is known.
func (t *Tracker) SetCurrent(current int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if current < 0 {
		current = 0
	}
	if t.progress.Total > 0 && current > t.progress.Total {
		current = t.progress.Total
	}
	t.progress.Current = current
}

// Progress returns the current progress snapshot.
func (t *Tracker) Progress() model.Progress {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.progress
}

// Reapply pushes the cached state to sink. Call it after every full
// rebuild of the question screen.
func (t *Tracker) Reapply(sink PanelSink) {
	if c := t.CurrentOrLast(); !c.Empty() {
		sink.ShowConfidence(c)
	}
	sink.ShowProgress(t.Progress())
}

// Reset forgets the cached snapshot and progress.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.confidence = nil
	t.progress = model.Progress{}
}
