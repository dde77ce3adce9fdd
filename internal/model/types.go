// Package model defines the session data shared by the assessment packages:
// questions, responses, progress and confidence snapshots.
package model

import (
	"encoding/json"
	"fmt"
)

// Tier selects the length and depth of an assessment.
type Tier string

const (
	TierStandard      Tier = "standard"
	TierComprehensive Tier = "comprehensive"
)

// ParseTier validates a tier name. The empty string maps to TierStandard.
func ParseTier(s string) (Tier, error) {
	switch Tier(s) {
	case "", TierStandard:
		return TierStandard, nil
	case TierComprehensive:
		return TierComprehensive, nil
	default:
		return "", fmt.Errorf("unknown tier %q (want standard or comprehensive)", s)
	}
}

// Phase is the coarse stage of the interview.
type Phase string

const (
	PhaseBaseline Phase = "baseline"
	PhaseAdaptive Phase = "adaptive"
	PhaseComplete Phase = "complete"
)

// Mode is the backend response dialect in effect for a session. It is
// decided once when the session is initiated and never re-derived.
type Mode int

const (
	ModeLegacy      Mode = iota // baseline batch, then adaptive batches
	ModeMultiStage              // staged adaptive batches
	ModeIntelligent             // one new question per answered question
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeMultiStage:
		return "multi-stage"
	case ModeIntelligent:
		return "intelligent-single-question"
	default:
		return "legacy-baseline-adaptive"
	}
}

// MarshalJSON encodes the mode by name so checkpoints stay readable.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON decodes a mode name written by MarshalJSON.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "multi-stage":
		*m = ModeMultiStage
	case "intelligent-single-question":
		*m = ModeIntelligent
	case "legacy-baseline-adaptive", "":
		*m = ModeLegacy
	default:
		return fmt.Errorf("unknown protocol mode %q", s)
	}
	return nil
}

// Option is one selectable answer of a Question. Score holds the option's
// explicit score attribute when the backend provides one.
type Option struct {
	Label string  `json:"label"`
	Value string  `json:"value"`
	Score *string `json:"score,omitempty"`
}

// Question is a single item presented to the user.
type Question struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	Category     string   `json:"category,omitempty"`
	Subcategory  string   `json:"subcategory,omitempty"`
	ResponseType string   `json:"responseType,omitempty"`
	Options      []Option `json:"options"`
	Context      string   `json:"context,omitempty"`
}

// Response is one recorded answer. Sent is set once the backend has
// acknowledged it so later batch submissions skip it.
type Response struct {
	QuestionID     string `json:"questionId"`
	Answer         string `json:"answer"`
	Score          int    `json:"score"`
	ResponseTimeMs int64  `json:"responseTime"`
	Phase          Phase  `json:"phase"`
	Sent           bool   `json:"sent"`
}

// Progress counts answered questions against the expected total.
// Current is a response count so it survives batch replacement.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Ratio returns progress as a fraction in [0, 1]. An unknown total is 0.
func (p Progress) Ratio() float64 {
	if p.Total <= 0 {
		return 0
	}
	r := float64(p.Current) / float64(p.Total)
	if r > 1 {
		return 1
	}
	return r
}

// SkipNotice tells the user a trait needs no further questions.
type SkipNotice struct {
	Dimension  string  `json:"dimension"`
	Confidence float64 `json:"confidence"`
}
