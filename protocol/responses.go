package protocol

import "strings"

// Outcome is the terminal classification of an update attempt.
type Outcome int

const (
	// OutcomeUnclear means no success or failure keyword was observed.
	// It is a distinct non-success outcome: callers must never treat it
	// as a completed update.
	OutcomeUnclear Outcome = iota

	// OutcomeCompleted means a success keyword was observed with no prior
	// failure keyword.
	OutcomeCompleted

	// OutcomeFailed means a failure keyword was observed.
	OutcomeFailed
)

// String returns a human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeUnclear:
		return "unclear"
	default:
		return "unknown"
	}
}

// ClassifyLine classifies a single device-reported line.
//
// Matching is case-insensitive substring search against FailureKeywords
// and SuccessKeywords. Failure keywords are checked first, so a line that
// happens to contain keywords from both sets classifies as failed. A line
// matching neither set returns OutcomeUnclear, meaning the line carries no
// classification on its own.
func ClassifyLine(line string) Outcome {
	lower := strings.ToLower(line)

	for _, kw := range FailureKeywords {
		if strings.Contains(lower, kw) {
			return OutcomeFailed
		}
	}
	for _, kw := range SuccessKeywords {
		if strings.Contains(lower, kw) {
			return OutcomeCompleted
		}
	}

	return OutcomeUnclear
}

// ContainsReadyBanner reports whether the accumulated handshake bytes
// contain any readiness banner substring. The input is raw link bytes, not
// a complete line: the banner may arrive split across reads, so callers
// should match against the accumulated window rather than per-read.
func ContainsReadyBanner(data []byte) bool {
	s := string(data)
	for _, banner := range ReadyBanners {
		if strings.Contains(s, banner) {
			return true
		}
	}
	return false
}
