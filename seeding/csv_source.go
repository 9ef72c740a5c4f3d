package seeding

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// RowDecoder converts one CSV row into a typed record.
type RowDecoder[T any] func(row []string) (T, error)

// CSVSource reads a delimited file with a fixed column order. A leading row
// equal to the expected header (case-insensitive) is skipped.
type CSVSource[T any] struct {
	path   string
	header []string
	decode RowDecoder[T]
}

func NewCSVSource[T any](path string, header []string, decode RowDecoder[T]) *CSVSource[T] {
	return &CSVSource[T]{path: path, header: header, decode: decode}
}

func (s *CSVSource[T]) Path() string { return s.path }

func (s *CSVSource[T]) Load(ctx context.Context) (*Sequence[T], error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(s.header)
	r.TrimLeadingSpace = true

	var (
		records  []T
		badLines []int
		problems []error
		rows     int
	)
	reject := func(line int, err error) {
		badLines = append(badLines, line)
		problems = append(problems, fmt.Errorf("line %d: %w", line, err))
	}

	for len(badLines) < maxReportedProblems {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rows++
		if rows%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err != nil {
			var csvErr *csv.ParseError
			if !errors.As(err, &csvErr) {
				return nil, fmt.Errorf("read %s: %w", s.path, err)
			}
			reject(csvErr.Line, csvErr.Err)
			continue
		}

		line, _ := r.FieldPos(0)
		if rows == 1 && s.isHeader(row) {
			continue
		}

		rec, err := s.decode(row)
		if err == nil {
			err = validate.Struct(rec)
		}
		if err != nil {
			reject(line, err)
			continue
		}
		records = append(records, rec)
	}

	if len(badLines) > 0 {
		return nil, &ParseError{File: s.path, Lines: badLines, Err: errors.Join(problems...)}
	}
	return NewSequence(records), nil
}

func (s *CSVSource[T]) isHeader(row []string) bool {
	if len(row) != len(s.header) {
		return false
	}
	for i, col := range s.header {
		if !strings.EqualFold(strings.TrimSpace(row[i]), col) {
			return false
		}
	}
	return true
}
