package util

import (
	"testing"
)

func TestDurationParserMinutes(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
	}{
		{name: "hours and minutes", input: "1 godz. 10 min.", want: 70},
		{name: "minutes only", input: "45 min.", want: 45},
		{name: "zero hours", input: "0 godz. 50 min.", want: 50},
		{name: "with seconds", input: "2 godz. 3 min. 59 s", want: 123},
		{name: "seconds only", input: "40 s", want: 0},
		{name: "non breaking space", input: "1\u00A0godz.", want: 60},
	}

	parser := NewDurationParser("godz")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := parser.Minutes(tc.input)
			if got == nil {
				t.Fatalf("got nil")
			}
			if *got != tc.want {
				t.Fatalf("got %d want %d", *got, tc.want)
			}
		})
	}
}

func TestDurationParserCustomUnit(t *testing.T) {
	got := NewDurationParser("h").Minutes("2 h 5 min")
	if got == nil || *got != 125 {
		t.Fatalf("got %v want 125", got)
	}
}

func TestDurationParserUnknown(t *testing.T) {
	if got := NewDurationParser("godz").Minutes("brak danych"); got != nil {
		t.Fatalf("got %d want nil", *got)
	}
}
