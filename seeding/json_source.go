package seeding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

// JSONSource reads a file holding a single JSON array of records.
type JSONSource[T any] struct {
	path string
}

func NewJSONSource[T any](path string) *JSONSource[T] {
	return &JSONSource[T]{path: path}
}

func (s *JSONSource[T]) Path() string { return s.path }

func (s *JSONSource[T]) Load(ctx context.Context) (*Sequence[T], error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, &ParseError{File: s.path, Lines: []int{lineAt(data, 0)}, Err: err}
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, &ParseError{File: s.path, Lines: []int{lineAt(data, 0)}, Err: errors.New("expected a JSON array")}
	}

	var (
		records  []T
		badLines []int
		problems []error
	)
	for dec.More() && len(badLines) < maxReportedProblems {
		if len(records)%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := lineAt(data, dec.InputOffset())
		var rec T
		if err := dec.Decode(&rec); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
				badLines = append(badLines, line)
				problems = append(problems, fmt.Errorf("line %d: %w", line, err))
				break
			}
			badLines = append(badLines, line)
			problems = append(problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if err := validate.Struct(rec); err != nil {
			badLines = append(badLines, line)
			problems = append(problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		records = append(records, rec)
	}

	if len(badLines) > 0 {
		return nil, &ParseError{File: s.path, Lines: badLines, Err: errors.Join(problems...)}
	}
	if _, err := dec.Token(); err != nil {
		return nil, &ParseError{File: s.path, Lines: []int{lineAt(data, dec.InputOffset())}, Err: err}
	}
	end := dec.InputOffset()
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{File: s.path, Lines: []int{lineAt(data, end)}, Err: errors.New("unexpected content after the array")}
	}
	return NewSequence(records), nil
}

// lineAt returns the 1-based line of the first value at or after offset.
func lineAt(data []byte, offset int64) int {
	i := int(offset)
	if i > len(data) {
		i = len(data)
	}
	for i < len(data) {
		switch data[i] {
		case ' ', '\t', '\r', '\n', ',':
			i++
			continue
		}
		break
	}
	return 1 + bytes.Count(data[:i], []byte{'\n'})
}
