// Package source turns exported report files into a pull-based stream of raw rows.
package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"attendance/internal"
)

var (
	ErrUnsupportedInput   = errors.New("unsupported input type")
	ErrNoReportAttachment = errors.New("no report attachment found")
)

// RowSource yields rows on demand. Next returns io.EOF once the input is
// exhausted; a source cannot be rewound.
type RowSource interface {
	Next() (internal.RawRow, error)
	Close() error
}

type Options struct {
	Type     internal.InputType
	Encoding string
}

type ReadError struct {
	Line int
	Err  error
}

func (e *ReadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("read row at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("read row: %v", e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

func DetectType(name string) (internal.InputType, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".tsv", ".txt":
		return internal.InputTSV, nil
	case ".xlsx":
		return internal.InputXLSX, nil
	case ".htm", ".html":
		return internal.InputHTML, nil
	case ".eml":
		return internal.InputEML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedInput, name)
	}
}

func Open(path string, opts Options) (RowSource, error) {
	inType, err := resolveType(path, opts.Type)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	src, err := fromReader(f, inType, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return withCloser(src, f), nil
}

// FromBytes opens an in-memory payload, e.g. a mail attachment. The type is
// taken from opts or inferred from name.
func FromBytes(name string, blob []byte, opts Options) (RowSource, error) {
	inType, err := resolveType(name, opts.Type)
	if err != nil {
		return nil, err
	}
	return fromReader(bytes.NewReader(blob), inType, opts)
}

func Collect(src RowSource) ([]internal.RawRow, error) {
	var out []internal.RawRow
	for {
		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

func fromReader(r io.Reader, inType internal.InputType, opts Options) (RowSource, error) {
	switch inType {
	case internal.InputTSV:
		return NewTSV(r, opts.Encoding)
	case internal.InputXLSX:
		return NewXLSX(r)
	case internal.InputHTML:
		return NewHTML(r)
	case internal.InputEML:
		return NewEML(r, Options{Encoding: opts.Encoding})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, inType)
	}
}

func resolveType(name string, declared internal.InputType) (internal.InputType, error) {
	if strings.TrimSpace(string(declared)) != "" {
		return internal.InputType(strings.ToLower(string(declared))), nil
	}
	return DetectType(name)
}

type sliceSource struct {
	rows []internal.RawRow
	pos  int
}

func newSliceSource(rows []internal.RawRow) *sliceSource {
	return &sliceSource{rows: rows}
}

func (s *sliceSource) Next() (internal.RawRow, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

func (s *sliceSource) Close() error { return nil }

type closingSource struct {
	RowSource
	closer io.Closer
}

func withCloser(src RowSource, c io.Closer) RowSource {
	return &closingSource{RowSource: src, closer: c}
}

func (s *closingSource) Close() error {
	err := s.RowSource.Close()
	if cerr := s.closer.Close(); err == nil {
		err = cerr
	}
	return err
}

func trimCells(cells []string) internal.RawRow {
	out := make(internal.RawRow, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}
