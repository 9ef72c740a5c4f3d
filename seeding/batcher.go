package seeding

import (
	"context"
	"io"
	"strings"
)

const (
	// MaxRowsPerStatement is the largest number of row values the target
	// engine accepts in one insert statement.
	MaxRowsPerStatement = 1000

	// StatementKeyword opens a new statement in a pre-rendered SQL script.
	StatementKeyword = "insert"
)

// Batch is an ordered group of records executed as one statement.
// Position is the number of records consumed up to and including this batch.
type Batch[T any] struct {
	Items    []T
	Position int
}

func (b Batch[T]) Len() int { return len(b.Items) }

// Batcher yields batches in source order and io.EOF once input is exhausted.
type Batcher[T any] interface {
	Next(ctx context.Context) (Batch[T], error)
}

// IsStatementStart reports whether a script line opens a new insert
// statement. Leading blanks are ignored and the keyword is matched
// case-insensitively.
func IsStatementStart(line string) bool {
	line = strings.TrimLeft(line, " \t")
	return len(line) >= len(StatementKeyword) && strings.EqualFold(line[:len(StatementKeyword)], StatementKeyword)
}

// IsComment reports whether a script line is a SQL line comment.
func IsComment(line string) bool {
	return strings.HasPrefix(strings.TrimLeft(line, " \t"), "--")
}

// LineBatcher groups script lines by statement. The grouping already present
// in the script is kept: a batch ends right before the next line that opens
// a statement, and whatever is pending at end of input is the last batch.
// Lines before the first statement travel with it.
type LineBatcher struct {
	seq      *Sequence[string]
	pending  []string
	open     bool
	position int
}

func NewLineBatcher(seq *Sequence[string]) *LineBatcher {
	return &LineBatcher{seq: seq}
}

func (b *LineBatcher) Next(ctx context.Context) (Batch[string], error) {
	if err := ctx.Err(); err != nil {
		return Batch[string]{}, err
	}
	for {
		line, ok := b.seq.Next()
		if !ok {
			if len(b.pending) > 0 {
				return b.flush(), nil
			}
			return Batch[string]{}, io.EOF
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if IsStatementStart(line) {
			if b.open {
				batch := b.flush()
				b.pending = append(b.pending, line)
				b.open = true
				return batch, nil
			}
			b.open = true
		}
		b.pending = append(b.pending, line)
	}
}

func (b *LineBatcher) flush() Batch[string] {
	b.position += len(b.pending)
	batch := Batch[string]{Items: b.pending, Position: b.position}
	b.pending = nil
	b.open = false
	return batch
}

// RecordBatcher cuts structured records into batches of a fixed size. Only
// the final batch may be smaller.
type RecordBatcher[T any] struct {
	seq      *Sequence[T]
	size     int
	position int
}

// NewRecordBatcher clamps size to 1..MaxRowsPerStatement.
func NewRecordBatcher[T any](seq *Sequence[T], size int) *RecordBatcher[T] {
	return &RecordBatcher[T]{seq: seq, size: ClampBatchSize(size)}
}

func (b *RecordBatcher[T]) Next(ctx context.Context) (Batch[T], error) {
	if err := ctx.Err(); err != nil {
		return Batch[T]{}, err
	}
	items := make([]T, 0, b.size)
	for len(items) < b.size {
		item, ok := b.seq.Next()
		if !ok {
			break
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return Batch[T]{}, io.EOF
	}
	b.position += len(items)
	return Batch[T]{Items: items, Position: b.position}, nil
}

// ClampBatchSize bounds a configured batch size to what one statement holds.
func ClampBatchSize(size int) int {
	if size <= 0 || size > MaxRowsPerStatement {
		return MaxRowsPerStatement
	}
	return size
}
