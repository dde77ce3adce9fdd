package assessment

import "github.com/berth-dev/assessor/internal/model"

// Ledger is the append-only record of answers with a single undo. Every
// response lives in the all-ledger and in exactly one phase ledger, and
// the phase ledgers concatenate back to the all-ledger in order.
type Ledger struct {
	all      []*model.Response
	baseline []*model.Response
	adaptive []*model.Response
}

// NewLedger rebuilds a ledger from saved responses.
func NewLedger(responses []model.Response) Ledger {
	var l Ledger
	for i := range responses {
		r := responses[i]
		l.Append(&r)
	}
	return l
}

// Append records r in the all-ledger and in the ledger of r.Phase.
func (l *Ledger) Append(r *model.Response) {
	l.all = append(l.all, r)
	if r.Phase == model.PhaseBaseline {
		l.baseline = append(l.baseline, r)
	} else {
		l.adaptive = append(l.adaptive, r)
	}
}

// Pop removes the most recent response from the all-ledger and from its
// phase ledger.
func (l *Ledger) Pop() (*model.Response, bool) {
	if len(l.all) == 0 {
		return nil, false
	}
	r := l.all[len(l.all)-1]
	l.all = l.all[:len(l.all)-1]
	if r.Phase == model.PhaseBaseline {
		l.baseline = l.baseline[:len(l.baseline)-1]
	} else {
		l.adaptive = l.adaptive[:len(l.adaptive)-1]
	}
	return r, true
}

// Len is the number of recorded responses.
func (l *Ledger) Len() int { return len(l.all) }

// Baseline returns the baseline-phase responses.
func (l *Ledger) Baseline() []*model.Response { return append([]*model.Response(nil), l.baseline...) }

// Adaptive returns the adaptive-phase responses.
func (l *Ledger) Adaptive() []*model.Response { return append([]*model.Response(nil), l.adaptive...) }

// Unsent returns the responses the backend has not acknowledged yet.
func (l *Ledger) Unsent() []*model.Response {
	var out []*model.Response
	for _, r := range l.all {
		if !r.Sent {
			out = append(out, r)
		}
	}
	return out
}

// Values copies the all-ledger.
func (l *Ledger) Values() []model.Response {
	out := make([]model.Response, len(l.all))
	for i, r := range l.all {
		out[i] = *r
	}
	return out
}

// Batch is the current list of questions and the cursor into it. The
// cursor may equal the batch length, meaning every question is answered.
type Batch struct {
	questions []model.Question
	cursor    int
}

// NewBatch installs questions with the cursor at start, clamped to the
// batch bounds.
func NewBatch(questions []model.Question, start int) Batch {
	b := Batch{questions: append([]model.Question(nil), questions...)}
	switch {
	case start < 0:
		b.cursor = 0
	case start > len(b.questions):
		b.cursor = len(b.questions)
	default:
		b.cursor = start
	}
	return b
}

// Current returns the question under the cursor.
func (b *Batch) Current() (model.Question, bool) {
	if b.cursor >= len(b.questions) {
		return model.Question{}, false
	}
	return b.questions[b.cursor], true
}

// Exhausted reports whether every question in the batch has been answered.
func (b *Batch) Exhausted() bool { return b.cursor >= len(b.questions) }

func (b *Batch) Len() int    { return len(b.questions) }
func (b *Batch) Cursor() int { return b.cursor }

func (b *Batch) Questions() []model.Question {
	return append([]model.Question(nil), b.questions...)
}

func (b *Batch) next() {
	if b.cursor < len(b.questions) {
		b.cursor++
	}
}

func (b *Batch) back() {
	if b.cursor > 0 {
		b.cursor--
	}
}
