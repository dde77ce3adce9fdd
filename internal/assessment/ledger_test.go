package assessment

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/berth-dev/assessor/internal/model"
)

func TestLedgerPhaseLedgersConcatenateToAll(t *testing.T) {
	var l Ledger
	l.Append(&model.Response{QuestionID: "b1", Phase: model.PhaseBaseline})
	l.Append(&model.Response{QuestionID: "b2", Phase: model.PhaseBaseline})
	l.Append(&model.Response{QuestionID: "a1", Phase: model.PhaseAdaptive})
	l.Append(&model.Response{QuestionID: "a2", Phase: model.PhaseAdaptive})

	var joined []model.Response
	for _, r := range append(l.Baseline(), l.Adaptive()...) {
		joined = append(joined, *r)
	}
	if diff := cmp.Diff(l.Values(), joined); diff != "" {
		t.Errorf("baseline+adaptive != all (-all +joined):\n%s", diff)
	}

	r, ok := l.Pop()
	if !ok || r.QuestionID != "a2" {
		t.Fatalf("Pop = %v, %v", r, ok)
	}
	if len(l.Adaptive()) != 1 || len(l.Baseline()) != 2 || l.Len() != 3 {
		t.Errorf("after Pop: baseline=%d adaptive=%d all=%d", len(l.Baseline()), len(l.Adaptive()), l.Len())
	}
}

func TestLedgerPopEmpty(t *testing.T) {
	var l Ledger
	if _, ok := l.Pop(); ok {
		t.Error("Pop on an empty ledger should report false")
	}
}

func TestLedgerUnsent(t *testing.T) {
	l := NewLedger([]model.Response{
		{QuestionID: "q1", Phase: model.PhaseAdaptive, Sent: true},
		{QuestionID: "q2", Phase: model.PhaseAdaptive},
		{QuestionID: "q3", Phase: model.PhaseAdaptive},
	})
	unsent := l.Unsent()
	if len(unsent) != 2 || unsent[0].QuestionID != "q2" {
		t.Errorf("Unsent = %+v", unsent)
	}
}

func TestNewBatchClampsCursor(t *testing.T) {
	qs := []model.Question{{ID: "q1"}, {ID: "q2"}}
	tests := []struct {
		start int
		want  int
	}{
		{-3, 0},
		{0, 0},
		{1, 1},
		{2, 2},
		{9, 2},
	}
	for _, tt := range tests {
		b := NewBatch(qs, tt.start)
		if b.Cursor() != tt.want {
			t.Errorf("NewBatch(start=%d).Cursor() = %d, want %d", tt.start, b.Cursor(), tt.want)
		}
	}

	b := NewBatch(qs, 2)
	if !b.Exhausted() {
		t.Error("cursor at len should be exhausted")
	}
	if _, ok := b.Current(); ok {
		t.Error("Current on an exhausted batch should report false")
	}
}
