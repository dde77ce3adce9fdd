package session

import (
	"fmt"

	"github.com/berth-dev/assessor/internal/model"
)

// Recorder mirrors a running assessment into the history store. Calls are
// keyed by the service-issued session id.
type Recorder struct {
	store *Store
}

// NewRecorder wraps store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// SessionStarted opens a history row for a new session.
func (r *Recorder) SessionStarted(remoteID string, tier model.Tier, mode model.Mode) error {
	_, err := r.store.CreateSession(remoteID, string(tier), mode.String())
	return err
}

// ResponseRecorded appends one answer to the session's mirror.
func (r *Recorder) ResponseRecorded(remoteID string, resp model.Response) error {
	id, err := r.localID(remoteID)
	if err != nil {
		return err
	}
	return r.store.AddResponse(id, Response{
		QuestionID:     resp.QuestionID,
		Answer:         resp.Answer,
		Score:          resp.Score,
		Phase:          string(resp.Phase),
		ResponseTimeMs: resp.ResponseTimeMs,
	})
}

// ResponseRetracted drops the most recent mirrored answer.
func (r *Recorder) ResponseRetracted(remoteID string) error {
	id, err := r.localID(remoteID)
	if err != nil {
		return err
	}
	return r.store.RemoveLastResponse(id)
}

// SessionEnded records the final status.
func (r *Recorder) SessionEnded(remoteID, status string) error {
	id, err := r.localID(remoteID)
	if err != nil {
		return err
	}
	return r.store.SetStatus(id, status)
}

func (r *Recorder) localID(remoteID string) (string, error) {
	sess, err := r.store.GetByRemoteID(remoteID)
	if err != nil {
		return "", err
	}
	if sess == nil {
		return "", fmt.Errorf("no history for session %s", remoteID)
	}
	return sess.ID, nil
}
