package session

import (
	"testing"

	"github.com/berth-dev/assessor/internal/model"
)

func TestRecorderMirrorsLifecycle(t *testing.T) {
	store := newTestStore(t)
	rec := NewRecorder(store)

	if err := rec.SessionStarted("remote-9", model.TierComprehensive, model.ModeIntelligent); err != nil {
		t.Fatalf("SessionStarted: %v", err)
	}
	for _, q := range []string{"q1", "q2", "q3"} {
		if err := rec.ResponseRecorded("remote-9", model.Response{QuestionID: q, Answer: "4", Score: 4, Phase: model.PhaseAdaptive}); err != nil {
			t.Fatalf("ResponseRecorded(%s): %v", q, err)
		}
	}
	if err := rec.ResponseRetracted("remote-9"); err != nil {
		t.Fatalf("ResponseRetracted: %v", err)
	}
	if err := rec.SessionEnded("remote-9", StatusComplete); err != nil {
		t.Fatalf("SessionEnded: %v", err)
	}

	sess, err := store.GetByRemoteID("remote-9")
	if err != nil || sess == nil {
		t.Fatalf("GetByRemoteID = %v, %v", sess, err)
	}
	if sess.Status != StatusComplete || sess.Mode != "intelligent-single-question" || sess.Tier != "comprehensive" {
		t.Errorf("session = %+v", sess)
	}
	responses, err := store.GetResponses(sess.ID)
	if err != nil {
		t.Fatalf("GetResponses: %v", err)
	}
	if len(responses) != 2 || responses[1].QuestionID != "q2" {
		t.Errorf("responses = %+v", responses)
	}
}

func TestRecorderUnknownSession(t *testing.T) {
	rec := NewRecorder(newTestStore(t))
	if err := rec.ResponseRecorded("ghost", model.Response{}); err == nil {
		t.Error("recording into an unknown session should fail")
	}
}
