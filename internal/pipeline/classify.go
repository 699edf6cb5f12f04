package pipeline

import (
	"regexp"
	"strings"

	"attendance/internal"
	"attendance/internal/util"
)

// Classifier derives certificate eligibility from the duration text: at
// least one whole hour written as "<n> <hourUnit>", n >= 1.
type Classifier struct {
	pattern   *regexp.Regexp
	durations *util.DurationParser
}

func NewClassifier(hourUnit string) *Classifier {
	return &Classifier{
		pattern:   regexp.MustCompile(`\b([1-9]\d*)\s+` + regexp.QuoteMeta(hourUnit)),
		durations: util.NewDurationParser(hourUnit),
	}
}

func (c *Classifier) Eligibility(duration string) internal.Eligibility {
	if c.pattern.MatchString(strings.ReplaceAll(duration, "\u00A0", " ")) {
		return internal.EligibleYes
	}
	return internal.EligibleNo
}

func (c *Classifier) Classify(records []internal.Participant) []internal.ClassifiedParticipant {
	out := make([]internal.ClassifiedParticipant, 0, len(records))
	for _, r := range records {
		out = append(out, internal.ClassifiedParticipant{
			LastName:        r.LastName,
			FirstName:       r.FirstName,
			Eligibility:     c.Eligibility(r.Duration),
			Duration:        r.Duration,
			DurationMinutes: c.durations.Minutes(r.Duration),
		})
	}
	return out
}

func CountEligible(records []internal.ClassifiedParticipant) int {
	n := 0
	for _, r := range records {
		if r.Eligibility == internal.EligibleYes {
			n++
		}
	}
	return n
}
