package seeding

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Statement is one executable command with its bound arguments. Arguments
// use '?' placeholders; the store rebinds them for its dialect.
type Statement struct {
	SQL  string
	Args []any
}

// ScriptStatement joins pre-rendered script lines into a single command.
func ScriptStatement(lines []string) (Statement, error) {
	return Statement{SQL: strings.Join(lines, "\n")}, nil
}

// RowMapper returns the column values of one record, in column order.
type RowMapper[T any] func(rec T) []any

// InsertBuilder renders a batch of records as one multi-row insert with
// bound parameters.
type InsertBuilder[T any] struct {
	table   string
	columns []string
	row     RowMapper[T]
}

func NewInsertBuilder[T any](table string, columns []string, row RowMapper[T]) *InsertBuilder[T] {
	return &InsertBuilder[T]{table: table, columns: columns, row: row}
}

func (b *InsertBuilder[T]) Build(items []T) (Statement, error) {
	if len(items) == 0 {
		return Statement{}, fmt.Errorf("insert into %s: empty batch", b.table)
	}
	if len(items) > MaxRowsPerStatement {
		return Statement{}, fmt.Errorf("insert into %s: %d rows exceeds %d per statement", b.table, len(items), MaxRowsPerStatement)
	}

	q := sq.Insert(b.table).Columns(b.columns...).PlaceholderFormat(sq.Question)
	for _, item := range items {
		values := b.row(item)
		if len(values) != len(b.columns) {
			return Statement{}, fmt.Errorf("insert into %s: row has %d values for %d columns", b.table, len(values), len(b.columns))
		}
		q = q.Values(values...)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("build insert into %s: %w", b.table, err)
	}
	return Statement{SQL: query, Args: args}, nil
}
