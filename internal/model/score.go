package model

import (
	"strconv"
	"strings"
)

// DefaultScore is used when an option carries neither a score nor a numeric value.
const DefaultScore = 3

// ResolveScore returns the numeric score of an option.
//
// Precedence: an explicit, non-empty Score; then a numeric Value; then
// DefaultScore. A score of "0" is a real answer (a binary "No") and must
// resolve to 0.
func ResolveScore(opt Option) int {
	if opt.Score != nil {
		if s := strings.TrimSpace(*opt.Score); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				return n
			}
		}
	}
	if v := strings.TrimSpace(opt.Value); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return DefaultScore
}

// StrPtr returns a pointer to s. Handy for building options with a score.
func StrPtr(s string) *string {
	return &s
}
