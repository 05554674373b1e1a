package validator

import (
	"fmt"
	"strings"
)

// Feedback headlines; every composed message starts with exactly one of them.
const (
	HeadlineExcellent = "Excellent work! Your code passes every check."
	HeadlineGood      = "Good job! Your code works, with a few minor suggestions."
	HeadlineIssues    = "Your code has some issues to address."
)

const (
	maxListedErrors   = 3
	maxListedWarnings = 2
)

// ComposeFeedback renders diagnostics into a single multi-line message for
// the learner.
func ComposeFeedback(errors, warnings []string) string {
	var b strings.Builder

	switch {
	case len(errors) > 0:
		b.WriteString(HeadlineIssues)
	case len(warnings) > 0:
		b.WriteString(HeadlineGood)
	default:
		b.WriteString(HeadlineExcellent)
	}

	if len(errors) > 0 {
		b.WriteString("\n\nIssues to fix:")
		for _, msg := range errors[:min(len(errors), maxListedErrors)] {
			b.WriteString("\n• ")
			b.WriteString(SimplifyMessage(msg))
		}
		if extra := len(errors) - maxListedErrors; extra > 0 {
			fmt.Fprintf(&b, "\n...and %d more issues", extra)
		}
	}

	if len(warnings) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, msg := range warnings[:min(len(warnings), maxListedWarnings)] {
			b.WriteString("\n• ")
			b.WriteString(SimplifyMessage(msg))
		}
		if extra := len(warnings) - maxListedWarnings; extra > 0 {
			fmt.Fprintf(&b, "\n...and %d more suggestions", extra)
		}
	}

	return b.String()
}
