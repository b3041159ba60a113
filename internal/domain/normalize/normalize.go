// Package normalize canonicalizes feed text and margin values. Nothing here fails.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/riskibarqy/prediction-league/internal/domain/match"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

// Name lowercases s and strips every non-alphanumeric character.
func Name(s string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(s), "")
}

// Status maps free-text feed status to completed, live or scheduled.
// Completed tokens are checked first.
func Status(raw string) string {
	lowered := strings.ToLower(raw)
	switch {
	case containsAny(lowered, "ended", "finished", "completed"):
		return match.StatusCompleted
	case containsAny(lowered, "live", "running", "started"):
		return match.StatusLive
	default:
		return match.StatusScheduled
	}
}

// IsFinishedStatus reports a stored status that counts as completed for scoring.
func IsFinishedStatus(status string) bool {
	lowered := strings.ToLower(strings.TrimSpace(status))
	if strings.Contains(lowered, "complete") || strings.Contains(lowered, "ended") {
		return true
	}
	switch lowered {
	case "ft", "finished", "final":
		return true
	default:
		return false
	}
}

// MarginSatisfied checks a predicted margin against the actual one.
// Wickets compare exactly. Runs accept an exact value, "N+" or "A-B".
func MarginSatisfied(actual, predicted, marginType string) bool {
	if strings.EqualFold(marginType, match.MarginWickets) {
		return actual == predicted
	}

	actualValue, ok := leadingInt(actual)
	if !ok {
		return false
	}

	switch {
	case strings.Contains(predicted, "+"):
		floor, ok := leadingInt(strings.ReplaceAll(predicted, "+", ""))
		return ok && actualValue >= floor
	case strings.Contains(predicted, "-"):
		bounds := strings.SplitN(predicted, "-", 2)
		low, okLow := leadingInt(bounds[0])
		high, okHigh := leadingInt(bounds[1])
		return okLow && okHigh && actualValue >= low && actualValue <= high
	default:
		return actual == predicted
	}
}

// leadingInt parses the integer prefix of s after trimming spaces.
func leadingInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	value, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return value, true
}

func containsAny(s string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(s, token) {
			return true
		}
	}
	return false
}
