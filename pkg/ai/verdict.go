package ai

import (
	"regexp"
	"strings"
)

// Verdict is the binary outcome of a semantic judgment.
type Verdict string

const (
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
)

var verdictPattern = regexp.MustCompile(`\b(correct|incorrect)\b`)

// ParseVerdict extracts the verdict from a raw judge response. The first
// whole-word match wins. ok is false when the response carries no verdict, in
// which case the returned verdict is VerdictIncorrect.
func ParseVerdict(raw string) (verdict Verdict, ok bool) {
	decision := strings.ToLower(strings.TrimSpace(raw))

	switch Verdict(decision) {
	case VerdictCorrect, VerdictIncorrect:
		return Verdict(decision), true
	}

	match := verdictPattern.FindStringSubmatch(decision)
	if match == nil {
		return VerdictIncorrect, false
	}
	return Verdict(match[1]), true
}

// IsCorrect reports whether the verdict accepts the answer.
func (v Verdict) IsCorrect() bool {
	return v == VerdictCorrect
}
