package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	minutePattern = regexp.MustCompile(`(?i)\b(\d+)\s*min`)
	secondPattern = regexp.MustCompile(`(?i)\b(\d+)\s*s\b`)
)

// DurationParser reads Teams-style durations such as "1 godz. 10 min. 5 s"
// into whole minutes, seconds rounded down.
type DurationParser struct {
	hourPattern *regexp.Regexp
}

// NewDurationParser compiles the hour pattern for the local hour token.
func NewDurationParser(hourUnit string) *DurationParser {
	return &DurationParser{
		hourPattern: regexp.MustCompile(`(?i)\b(\d+)\s*` + regexp.QuoteMeta(hourUnit)),
	}
}

// Minutes returns nil when the text carries no recognisable amount.
func (p *DurationParser) Minutes(input string) *int {
	line := strings.ReplaceAll(input, "\u00A0", " ")

	found := false
	total := 0

	if m := p.hourPattern.FindStringSubmatch(line); len(m) > 1 {
		if h, err := strconv.Atoi(m[1]); err == nil {
			total += h * 60
			found = true
		}
	}
	if m := minutePattern.FindStringSubmatch(line); len(m) > 1 {
		if v, err := strconv.Atoi(m[1]); err == nil {
			total += v
			found = true
		}
	}
	if m := secondPattern.FindStringSubmatch(line); len(m) > 1 {
		if _, err := strconv.Atoi(m[1]); err == nil {
			found = true
		}
	}

	if !found {
		return nil
	}
	return IntPtr(total)
}
