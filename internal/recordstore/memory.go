package recordstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store. Inserted rows without an "id" get a random UUID.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Row
}

func NewMemory() *Memory {
	return &Memory{tables: make(map[string][]Row)}
}

func (m *Memory) Select(ctx context.Context, table string, f Filter) ([]Row, error) {
	if err := validate(table, f); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for _, row := range m.tables[table] {
		if f.matches(row) {
			out = append(out, clone(row))
		}
	}

	if f.orderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return less(out[i][f.orderBy], out[j][f.orderBy])
		})
	}
	return out, nil
}

func (m *Memory) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	if err := validate(table, Filter{}); err != nil {
		return nil, err
	}

	cols := sortedColumns(rows[0])
	for _, row := range rows {
		if len(row) != len(cols) {
			return nil, ErrColumnMismatch
		}
		for _, c := range cols {
			if _, ok := row[c]; !ok {
				return nil, ErrColumnMismatch
			}
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		stored := clone(row)
		if !stored.Has("id") {
			stored["id"] = uuid.New().String()
		}
		m.tables[table] = append(m.tables[table], stored)
		out = append(out, clone(stored))
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, table string, patch Row, f Filter) ([]Row, error) {
	if f.Empty() {
		return nil, ErrEmptyFilter
	}
	if len(patch) == 0 {
		return nil, ErrEmptyPatch
	}
	if err := validate(table, f); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Row
	for _, row := range m.tables[table] {
		if !f.matches(row) {
			continue
		}
		for k, v := range patch {
			row[k] = normalize(v)
		}
		out = append(out, clone(row))
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, table string, f Filter) error {
	if f.Empty() {
		return ErrEmptyFilter
	}
	if err := validate(table, f); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tables[table][:0]
	for _, row := range m.tables[table] {
		if !f.matches(row) {
			kept = append(kept, row)
		}
	}
	m.tables[table] = kept
	return nil
}

func (f Filter) matches(row Row) bool {
	for _, p := range f.preds {
		switch p.op {
		case opEq:
			if !row.Has(p.column) || !equal(row[p.column], p.values[0]) {
				return false
			}
		case opIn:
			found := false
			for _, v := range p.values {
				if row.Has(p.column) && equal(row[p.column], v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		case opIsNull:
			if row.Has(p.column) {
				return false
			}
		}
	}
	return true
}

func validate(table string, f Filter) error {
	if _, err := quote(table); err != nil {
		return err
	}
	for _, p := range f.preds {
		if _, err := quote(p.column); err != nil {
			return err
		}
	}
	return nil
}

// less orders integers numerically and everything else by its string form.
func less(a, b any) bool {
	x, xok := asInt(a)
	y, yok := asInt(b)
	if xok && yok {
		return x < y
	}
	return fmt.Sprint(normalize(a)) < fmt.Sprint(normalize(b))
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func equal(a, b any) bool {
	return fmt.Sprint(normalize(a)) == fmt.Sprint(normalize(b))
}

func clone(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = normalize(v)
	}
	return out
}
