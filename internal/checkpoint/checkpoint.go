// Package checkpoint persists the active assessment so an interrupted
// session can be resumed.
package checkpoint

import (
	"time"

	"github.com/berth-dev/assessor/internal/model"
)

// Version is the current checkpoint schema version.
const Version = 1

// Checkpoint is the durable snapshot of an active session. It is written
// on session start, on every phase change and after every answer, and is
// removed when the session completes or is abandoned.
type Checkpoint struct {
	Version        int              `json:"version"`
	SessionID      string           `json:"sessionId"`
	Tier           model.Tier       `json:"tier"`
	Mode           model.Mode       `json:"mode"`
	Phase          model.Phase      `json:"phase"`
	Stage          string           `json:"stage,omitempty"`
	StartTime      time.Time        `json:"startTime"`
	CurrentIndex   int              `json:"currentIndex"`
	TotalResponses int              `json:"totalResponses"`
	Timestamp      time.Time        `json:"timestamp"`
	Total          int              `json:"total"`
	Batch          []model.Question `json:"batch,omitempty"`
	Responses      []model.Response `json:"responses,omitempty"`
	Confidence     model.Confidence `json:"confidence,omitempty"`

	// PendingCompletion is set when the last response is in but the report
	// has not been delivered.
	PendingCompletion bool `json:"pendingCompletion,omitempty"`
}

// Progress is the compact per-answer view of a checkpoint.
type Progress struct {
	SessionID      string      `json:"sessionId"`
	Phase          model.Phase `json:"phase"`
	CurrentIndex   int         `json:"currentIndex"`
	TotalResponses int         `json:"totalResponses"`
	Timestamp      time.Time   `json:"timestamp"`
}

// ProgressView extracts the compact progress record.
func (cp *Checkpoint) ProgressView() Progress {
	return Progress{
		SessionID:      cp.SessionID,
		Phase:          cp.Phase,
		CurrentIndex:   cp.CurrentIndex,
		TotalResponses: cp.TotalResponses,
		Timestamp:      cp.Timestamp,
	}
}

// Store saves and restores the active checkpoint.
type Store interface {
	// Save overwrites the stored checkpoint and stamps its Timestamp.
	Save(cp *Checkpoint) error
	// Load returns nil, nil when no checkpoint exists.
	Load() (*Checkpoint, error)
	// Clear removes the checkpoint. Clearing a missing checkpoint is not an error.
	Clear() error
}

// stamp fills in the version and timestamp before a write.
func stamp(cp *Checkpoint) {
	if cp.Version == 0 {
		cp.Version = Version
	}
	cp.Timestamp = time.Now().UTC()
}
