package protocol

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/berth-dev/assessor/internal/model"
)

// scalar accepts a JSON string, number or boolean and keeps its text.
// The backend is not consistent about quoting scores, values and stage ids.
type scalar struct {
	set   bool
	value string
}

func (s *scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = scalar{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = scalar{set: true, value: str}
		return nil
	}
	*s = scalar{set: true, value: string(data)}
	return nil
}

func (s scalar) ptr() *string {
	if !s.set {
		return nil
	}
	v := s.value
	return &v
}

type rawOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
	Value scalar `json:"value"`
	Score scalar `json:"score"`
}

type rawQuestion struct {
	ID           scalar      `json:"id"`
	Text         string      `json:"text"`
	Question     string      `json:"question"`
	Category     string      `json:"category"`
	Subcategory  string      `json:"subcategory"`
	ResponseType string      `json:"responseType"`
	Options      []rawOption `json:"options"`
	Context      string      `json:"context"`
}

// rawTurn is the union of every field the backend uses for "next step" replies.
type rawTurn struct {
	Questions         []rawQuestion      `json:"questions"`
	NextQuestions     []rawQuestion      `json:"nextQuestions"`
	CurrentBatch      []rawQuestion      `json:"currentBatch"`
	AdaptiveQuestions []rawQuestion      `json:"adaptiveQuestions"`
	Complete          bool               `json:"complete"`
	Progress          *model.Progress    `json:"progress"`
	Confidence        model.Confidence   `json:"confidence"`
	Stage             scalar             `json:"stage"`
	CurrentStage      scalar             `json:"currentStage"`
	StageChanged      bool               `json:"stageChanged"`
	StageMessage      string             `json:"stageMessage"`
	ProgressMessage   string             `json:"progressMessage"`
	SkipNotifications []model.SkipNotice `json:"skipNotifications"`
	Phase             string             `json:"phase"`
	PhaseMessage      string             `json:"phaseMessage"`
}

type rawOpening struct {
	rawTurn
	SessionID          scalar `json:"sessionId"`
	TotalQuestions     int    `json:"totalQuestions"`
	Mode               string `json:"mode"`
	SingleQuestionMode bool   `json:"singleQuestionMode"`
}

type rawBaselineReply struct {
	rawTurn
	Success bool           `json:"success"`
	Profile map[string]any `json:"profile"`
	Error   string         `json:"error"`
}

type rawReportReply struct {
	Report json.RawMessage `json:"report"`
}

// Turn is the canonical shape of every backend reply that moves the
// session forward.
type Turn struct {
	Questions       []model.Question
	Complete        bool
	Progress        *model.Progress // nil when the reply carried none
	Confidence      model.Confidence
	StageChanged    bool
	StageLabel      string
	StageMessage    string
	Phase           string
	PhaseMessage    string
	ProgressMessage string
	SkipNotices     []model.SkipNotice
}

// Shape records the hints in an opening reply that decide the protocol mode.
type Shape struct {
	Mode               string
	SingleQuestionMode bool
	HasCurrentStage    bool
}

// Opening is the normalized reply to Initiate.
type Opening struct {
	Turn
	SessionID      string
	TotalQuestions int
	Shape          Shape
}

// AdaptiveHandoff is the normalized reply to SubmitBaselineAndGetAdaptive.
type AdaptiveHandoff struct {
	Turn
	Profile map[string]any
}

func (r rawTurn) normalize() Turn {
	t := Turn{
		Questions:       normalizeQuestions(firstNonEmpty(r.NextQuestions, r.CurrentBatch, r.Questions, r.AdaptiveQuestions)),
		Complete:        r.Complete,
		Progress:        r.Progress,
		Confidence:      r.Confidence,
		StageChanged:    r.StageChanged,
		StageMessage:    strings.TrimSpace(r.StageMessage),
		Phase:           r.Phase,
		PhaseMessage:    strings.TrimSpace(r.PhaseMessage),
		ProgressMessage: strings.TrimSpace(r.ProgressMessage),
		SkipNotices:     r.SkipNotifications,
	}
	switch {
	case r.CurrentStage.set:
		t.StageLabel = r.CurrentStage.value
	case r.Stage.set:
		t.StageLabel = r.Stage.value
	}
	return t
}

func firstNonEmpty(lists ...[]rawQuestion) []rawQuestion {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

func normalizeQuestions(raw []rawQuestion) []model.Question {
	out := make([]model.Question, 0, len(raw))
	for _, rq := range raw {
		text := rq.Text
		if text == "" {
			text = rq.Question
		}
		q := model.Question{
			ID:           rq.ID.value,
			Text:         text,
			Category:     rq.Category,
			Subcategory:  rq.Subcategory,
			ResponseType: rq.ResponseType,
			Context:      rq.Context,
			Options:      make([]model.Option, 0, len(rq.Options)),
		}
		for _, ro := range rq.Options {
			label := ro.Label
			if label == "" {
				label = ro.Text
			}
			if label == "" {
				label = ro.Value.value
			}
			q.Options = append(q.Options, model.Option{
				Label: label,
				Value: ro.Value.value,
				Score: ro.Score.ptr(),
			})
		}
		out = append(out, q)
	}
	return out
}
