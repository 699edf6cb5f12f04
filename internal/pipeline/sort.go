package pipeline

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"attendance/internal"
)

// SortByLastName returns a copy of records stably ordered by surname using
// the collation rules of locale.
func SortByLastName(records []internal.Participant, locale string) ([]internal.Participant, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parse collation locale %q: %w", locale, err)
	}
	col := collate.New(tag)

	out := append([]internal.Participant(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return col.CompareString(out[i].LastName, out[j].LastName) < 0
	})
	return out, nil
}
