// Package recordstore is the generic table-oriented persistence boundary the checkout
// flow talks to: create, read, update and delete rows by table name with filter predicates.
package recordstore

import (
	"context"
	"errors"
)

var (
	ErrEmptyFilter       = errors.New("recordstore: update and delete require a filter")
	ErrNoRows            = errors.New("recordstore: no rows to insert")
	ErrEmptyPatch        = errors.New("recordstore: update patch is empty")
	ErrColumnMismatch    = errors.New("recordstore: batch rows must share the same columns")
	ErrInvalidIdentifier = errors.New("recordstore: invalid table or column name")
)

// Store is implemented by the Postgres and in-memory backends.
type Store interface {
	Select(ctx context.Context, table string, f Filter) ([]Row, error)
	Insert(ctx context.Context, table string, rows ...Row) ([]Row, error)
	Update(ctx context.Context, table string, patch Row, f Filter) ([]Row, error)
	Delete(ctx context.Context, table string, f Filter) error
}

type op string

const (
	opEq     op = "="
	opIn     op = "IN"
	opIsNull op = "IS NULL"
)

type predicate struct {
	column string
	op     op
	values []any
}

// Filter is an AND of predicates. The zero value matches every row.
type Filter struct {
	preds   []predicate
	orderBy string
}

func Eq(column string, value any) Filter     { return Filter{}.Eq(column, value) }
func In(column string, values ...any) Filter { return Filter{}.In(column, values...) }
func IsNull(column string) Filter            { return Filter{}.IsNull(column) }
func All() Filter                            { return Filter{} }

// Empty reports whether the filter has no predicates.
func (f Filter) Empty() bool { return len(f.preds) == 0 }

func (f Filter) Eq(column string, value any) Filter {
	return f.with(predicate{column: column, op: opEq, values: []any{value}})
}

func (f Filter) In(column string, values ...any) Filter {
	return f.with(predicate{column: column, op: opIn, values: values})
}

func (f Filter) IsNull(column string) Filter {
	return f.with(predicate{column: column, op: opIsNull})
}

// OrderBy sorts results ascending by column.
func (f Filter) OrderBy(column string) Filter {
	f.orderBy = column
	return f
}

func (f Filter) with(p predicate) Filter {
	preds := make([]predicate, 0, len(f.preds)+1)
	preds = append(preds, f.preds...)
	f.preds = append(preds, p)
	return f
}
