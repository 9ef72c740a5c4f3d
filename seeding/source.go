package seeding

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// maxReportedProblems bounds how many bad rows a ParseError lists
	maxReportedProblems = 20
	// ctxCheckInterval is how many rows are read between context checks
	ctxCheckInterval = 1024
	maxLineBytes     = 16 * 1024 * 1024
)

var validate = validator.New()

// Source parses and validates a whole setup file. Either every record is
// returned or none is.
type Source[T any] interface {
	Path() string
	Load(ctx context.Context) (*Sequence[T], error)
}

// Sequence is a finite, single-pass sequence of validated records.
type Sequence[T any] struct {
	items []T
	pos   int
}

// NewSequence wraps already validated records.
func NewSequence[T any](items []T) *Sequence[T] {
	return &Sequence[T]{items: items}
}

// Next returns the next record, or false once the sequence is exhausted.
func (s *Sequence[T]) Next() (T, bool) {
	var zero T
	if s == nil || s.pos >= len(s.items) {
		return zero, false
	}
	item := s.items[s.pos]
	s.pos++
	return item, true
}

// Len is the number of records the sequence was created with.
func (s *Sequence[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// LineSource reads pre-rendered SQL insert scripts line by line. Blank lines
// are dropped. Comment lines may precede the first statement, which must be
// an insert.
type LineSource struct {
	path string
}

func NewLineSource(path string) *LineSource {
	return &LineSource{path: path}
}

func (s *LineSource) Path() string { return s.path }

func (s *LineSource) Load(ctx context.Context) (*Sequence[string], error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var lines []string
	opened := false
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if lineNo%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !opened {
			switch {
			case IsStatementStart(line):
				opened = true
			case !IsComment(line):
				return nil, &ParseError{
					File:  s.path,
					Lines: []int{lineNo},
					Err:   fmt.Errorf("expected an %s statement, got %q", StatementKeyword, shorten(line, 60)),
				}
			}
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{File: s.path, Lines: []int{lineNo + 1}, Err: err}
	}
	if !opened && len(lines) > 0 {
		return nil, &ParseError{File: s.path, Lines: []int{lineNo}, Err: fmt.Errorf("no %s statement", StatementKeyword)}
	}
	return NewSequence(lines), nil
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
