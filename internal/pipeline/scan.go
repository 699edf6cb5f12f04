package pipeline

import (
	"errors"
	"io"
	"strings"

	"attendance/internal"
	"attendance/internal/source"
)

type scanState int

const (
	scanBefore scanState = iota
	scanInside
	scanAfter
)

// SectionScanner isolates the rows strictly between a start marker row and a
// stop marker row. Marker rows themselves are never emitted; after the stop
// marker every row is discarded.
type SectionScanner struct {
	start string
	stop  string
	state scanState
}

func NewSectionScanner(start, stop string) *SectionScanner {
	return &SectionScanner{start: start, stop: stop}
}

// Feed advances the scanner by one row and reports whether the row is part
// of the section.
func (s *SectionScanner) Feed(row internal.RawRow) bool {
	switch s.state {
	case scanBefore:
		if rowContains(row, s.start) {
			s.state = scanInside
		}
		return false
	case scanInside:
		if rowContains(row, s.stop) {
			s.state = scanAfter
			return false
		}
		return true
	default:
		return false
	}
}

func (s *SectionScanner) Done() bool {
	return s.state == scanAfter
}

// ScanSection drains src through a SectionScanner and returns the section
// rows. Reading stops as soon as the stop marker is seen.
func ScanSection(src source.RowSource, start, stop string) ([]internal.RawRow, error) {
	scanner := NewSectionScanner(start, stop)
	out := []internal.RawRow{}
	for !scanner.Done() {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if scanner.Feed(row) {
			out = append(out, row)
		}
	}
	return out, nil
}

func rowContains(row internal.RawRow, marker string) bool {
	for _, cell := range row {
		if strings.Contains(cell, marker) {
			return true
		}
	}
	return false
}
