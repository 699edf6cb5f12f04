package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"attendance/internal"
)

type tsvSource struct {
	r *csv.Reader
}

// NewTSV reads tab-delimited text in the given encoding. Rows may have any
// number of columns and cells are trimmed. Malformed quoting is a read error.
func NewTSV(r io.Reader, enc string) (RowSource, error) {
	decoding, err := textEncoding(enc)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, decoding.NewDecoder()))
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	return &tsvSource{r: reader}, nil
}

func (s *tsvSource) Next() (internal.RawRow, error) {
	record, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		line := 0
		var pe *csv.ParseError
		if errors.As(err, &pe) {
			line = pe.Line
		}
		return nil, &ReadError{Line: line, Err: err}
	}
	return trimCells(record), nil
}

func (s *tsvSource) Close() error { return nil }

func textEncoding(name string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf16le", "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "utf16be", "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM), nil
	case "utf8", "utf-8":
		return unicode.UTF8BOM, nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250, nil
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", name)
	}
}
