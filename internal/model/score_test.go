package model

import (
	"encoding/json"
	"testing"
)

func TestResolveScore(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
		want int
	}{
		{name: "explicit zero score is kept", opt: Option{Label: "No", Value: "no", Score: StrPtr("0")}, want: 0},
		{name: "explicit score wins over value", opt: Option{Value: "2", Score: StrPtr("5")}, want: 5},
		{name: "empty score falls back to value", opt: Option{Value: "4", Score: StrPtr("")}, want: 4},
		{name: "whitespace score falls back to value", opt: Option{Value: "1", Score: StrPtr("  ")}, want: 1},
		{name: "nil score uses value", opt: Option{Value: "2"}, want: 2},
		{name: "zero value is kept", opt: Option{Value: "0"}, want: 0},
		{name: "non-numeric value uses midpoint", opt: Option{Value: "agree"}, want: DefaultScore},
		{name: "nothing at all uses midpoint", opt: Option{}, want: DefaultScore},
		{name: "garbage score falls through to value", opt: Option{Value: "5", Score: StrPtr("high")}, want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveScore(tt.opt); got != tt.want {
				t.Errorf("ResolveScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseTier(t *testing.T) {
	if tier, err := ParseTier(""); err != nil || tier != TierStandard {
		t.Errorf("ParseTier(\"\") = %q, %v; want standard", tier, err)
	}
	if tier, err := ParseTier("comprehensive"); err != nil || tier != TierComprehensive {
		t.Errorf("ParseTier(comprehensive) = %q, %v", tier, err)
	}
	if _, err := ParseTier("premium"); err == nil {
		t.Error("ParseTier(premium) should fail")
	}
}

func TestModeJSON(t *testing.T) {
	for _, m := range []Mode{ModeLegacy, ModeMultiStage, ModeIntelligent} {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal %v: %v", m, err)
		}
		var got Mode
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != m {
			t.Errorf("mode %s decoded as %s", m, got)
		}
	}

	var m Mode
	if err := json.Unmarshal([]byte(`"telepathic"`), &m); err == nil {
		t.Error("unknown mode should fail to decode")
	}
}

func TestLevelDecodingDefaultsToInsufficient(t *testing.T) {
	var tc TraitConfidence
	if err := json.Unmarshal([]byte(`{"confidence":40,"level":"Moderate"}`), &tc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tc.Level != LevelModerate {
		t.Errorf("level = %q, want moderate", tc.Level)
	}
	if err := json.Unmarshal([]byte(`{"confidence":10,"level":"meh"}`), &tc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tc.Level != LevelInsufficient {
		t.Errorf("level = %q, want insufficient", tc.Level)
	}
}
