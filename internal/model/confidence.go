package model

import (
	"encoding/json"
	"sort"
	"strings"
)

// Level buckets a trait's confidence.
type Level string

const (
	LevelInsufficient Level = "insufficient"
	LevelLow          Level = "low"
	LevelModerate     Level = "moderate"
	LevelHigh         Level = "high"
)

// UnmarshalJSON maps unknown or missing levels to LevelInsufficient.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch Level(strings.ToLower(s)) {
	case LevelLow:
		*l = LevelLow
	case LevelModerate:
		*l = LevelModerate
	case LevelHigh:
		*l = LevelHigh
	default:
		*l = LevelInsufficient
	}
	return nil
}

// Interval is a confidence interval on a 0–100 scale.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// TraitConfidence is the backend's certainty about a single trait.
type TraitConfidence struct {
	Confidence    float64  `json:"confidence"`
	Interval      Interval `json:"interval"`
	Level         Level    `json:"level"`
	QuestionCount int      `json:"questionCount"`
}

// Confidence maps trait keys to their confidence. An empty snapshot means
// "unchanged", never "zero confidence".
type Confidence map[string]TraitConfidence

// Empty reports whether the snapshot carries no traits.
func (c Confidence) Empty() bool {
	return len(c) == 0
}

// Traits returns the trait keys in stable order.
func (c Confidence) Traits() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns an independent copy.
func (c Confidence) Clone() Confidence {
	if c == nil {
		return nil
	}
	out := make(Confidence, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
