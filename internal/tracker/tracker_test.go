package tracker

import (
	"testing"

	"github.com/berth-dev/assessor/internal/model"
)

type recordingSink struct {
	confidence []model.Confidence
	progress   []model.Progress
}

func (s *recordingSink) ShowConfidence(c model.Confidence) { s.confidence = append(s.confidence, c) }
func (s *recordingSink) ShowProgress(p model.Progress)     { s.progress = append(s.progress, p) }

func TestIngestEmptyKeepsPrevious(t *testing.T) {
	tr := New()
	if got := tr.CurrentOrLast(); !got.Empty() {
		t.Fatalf("fresh tracker should be empty, got %v", got)
	}

	tr.Ingest(model.Confidence{"openness": {Confidence: 82, Level: model.LevelHigh}})
	tr.Ingest(model.Confidence{})
	tr.Ingest(nil)

	got := tr.CurrentOrLast()
	if got.Empty() {
		t.Fatal("empty ingest must not clear a previous snapshot")
	}
	if got["openness"].Confidence != 82 {
		t.Errorf("openness = %v, want 82", got["openness"].Confidence)
	}
}

func TestIngestReplacesWithFresherSnapshot(t *testing.T) {
	tr := New()
	tr.Ingest(model.Confidence{"openness": {Confidence: 40}})
	tr.Ingest(model.Confidence{"neuroticism": {Confidence: 55}})

	got := tr.CurrentOrLast()
	if _, ok := got["openness"]; ok {
		t.Error("a fresh snapshot supersedes the previous one entirely")
	}
	if got["neuroticism"].Confidence != 55 {
		t.Errorf("neuroticism = %v, want 55", got["neuroticism"].Confidence)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	tr := New()
	src := model.Confidence{"openness": {Confidence: 40}}
	tr.Ingest(src)
	src["openness"] = model.TraitConfidence{Confidence: 99}

	out := tr.CurrentOrLast()
	out["extraversion"] = model.TraitConfidence{Confidence: 1}

	got := tr.CurrentOrLast()
	if got["openness"].Confidence != 40 || len(got) != 1 {
		t.Errorf("tracker state leaked through a shared map: %v", got)
	}
}

func TestProgress(t *testing.T) {
	tr := New()
	tr.SetCurrent(3)
	if r := tr.Progress().Ratio(); r != 0 {
		t.Errorf("Ratio without total = %v, want 0", r)
	}

	tr.SetTotal(70)
	tr.SetTotal(0) // ignored
	tr.SetCurrent(35)
	if p := tr.Progress(); p != (model.Progress{Current: 35, Total: 70}) {
		t.Errorf("Progress = %+v", p)
	}
	if r := tr.Progress().Ratio(); r != 0.5 {
		t.Errorf("Ratio = %v, want 0.5", r)
	}

	tr.SetCurrent(90)
	if p := tr.Progress(); p.Current != 70 {
		t.Errorf("Current should be capped at total, got %d", p.Current)
	}
}

func TestReapply(t *testing.T) {
	tr := New()
	sink := &recordingSink{}

	tr.SetTotal(10)
	tr.Reapply(sink)
	if len(sink.confidence) != 0 {
		t.Error("no confidence should be pushed before any was ingested")
	}
	if len(sink.progress) != 1 {
		t.Fatalf("progress pushes = %d, want 1", len(sink.progress))
	}

	tr.Ingest(model.Confidence{"openness": {Confidence: 60}})
	tr.Reapply(sink)
	tr.Reapply(sink)
	if len(sink.confidence) != 2 {
		t.Errorf("confidence pushes = %d, want 2", len(sink.confidence))
	}
}

func TestReset(t *testing.T) {
	tr := New()
	tr.Ingest(model.Confidence{"openness": {Confidence: 60}})
	tr.SetTotal(40)
	tr.SetCurrent(12)

	tr.Reset()
	if c := tr.CurrentOrLast(); !c.Empty() {
		t.Errorf("CurrentOrLast after Reset = %v, want empty", c)
	}
	if p := tr.Progress(); p != (model.Progress{}) {
		t.Errorf("Progress after Reset = %+v, want zero", p)
	}
}
