package seeding

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrAlreadyStarted is returned when a seeding session is run twice.
var ErrAlreadyStarted = errors.New("seeding session already started")

// ParseError reports malformed records in a source file. No records from the
// file are handed to the loader when it occurs.
type ParseError struct {
	File  string
	Lines []int
	Err   error
}

func (e *ParseError) Error() string {
	if len(e.Lines) == 0 {
		return fmt.Sprintf("parse %s: %v", e.File, e.Err)
	}
	lines := make([]string, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = strconv.Itoa(l)
	}
	label := "line"
	if len(e.Lines) > 1 {
		label = "lines"
	}
	return fmt.Sprintf("parse %s (%s %s): %v", e.File, label, strings.Join(lines, ","), e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExecutionError reports a batch statement rejected by the store. Statement
// holds the full SQL text of the failing batch.
type ExecutionError struct {
	Dataset   string
	Statement string
	Position  int
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("seed %s: batch ending at record %d failed: %v", e.Dataset, e.Position, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// StatusCheckError reports a failure while probing a target table for rows.
type StatusCheckError struct {
	Dataset string
	Table   string
	Err     error
}

func (e *StatusCheckError) Error() string {
	return fmt.Sprintf("check %s status on table %s: %v", e.Dataset, e.Table, e.Err)
}

func (e *StatusCheckError) Unwrap() error { return e.Err }

// ErrAlreadyAttempted is returned when a dataset's load is started a second
// time in the same session. Parsed records are consumed by the first attempt.
var ErrAlreadyAttempted = errors.New("dataset load already attempted in this session")
