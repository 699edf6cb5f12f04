package source

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"attendance/internal"
)

// xlsxSource walks every sheet in workbook order. Each sheet is introduced by
// a one-cell row holding the sheet name, so workbooks that split the report
// into "1. Podsumowanie", "2. Uczestnicy", ... sheets carry the same section
// markers as the tab-delimited export.
type xlsxSource struct {
	f      *excelize.File
	sheets []string
	next   int
	rows   *excelize.Rows
}

func NewXLSX(r io.Reader) (RowSource, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &xlsxSource{f: f, sheets: f.GetSheetList()}, nil
}

func (s *xlsxSource) Next() (internal.RawRow, error) {
	for {
		if s.rows == nil {
			if s.next >= len(s.sheets) {
				return nil, io.EOF
			}
			name := s.sheets[s.next]
			s.next++
			rows, err := s.f.Rows(name)
			if err != nil {
				return nil, fmt.Errorf("open sheet %q: %w", name, err)
			}
			s.rows = rows
			return internal.RawRow{name}, nil
		}

		if s.rows.Next() {
			cols, err := s.rows.Columns()
			if err != nil {
				return nil, &ReadError{Err: err}
			}
			return trimCells(cols), nil
		}

		err := s.rows.Error()
		_ = s.rows.Close()
		s.rows = nil
		if err != nil {
			return nil, &ReadError{Err: err}
		}
	}
}

func (s *xlsxSource) Close() error {
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
	return s.f.Close()
}
