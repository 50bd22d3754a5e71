package recordstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/TechnoExperience/texnewweb-sub000/internal/logger"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

var identifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type postgresStore struct {
	db *sqlx.DB
}

// NewPostgres wraps an open *sql.DB (lib/pq) as a Store.
func NewPostgres(db *sql.DB) Store {
	return &postgresStore{db: sqlx.NewDb(db, "postgres")}
}

func (s *postgresStore) Select(ctx context.Context, table string, f Filter) ([]Row, error) {
	from, err := quote(table)
	if err != nil {
		return nil, err
	}

	where, args, err := buildWhere(f, 1)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + from + where
	if f.orderBy != "" {
		col, err := quote(f.orderBy)
		if err != nil {
			return nil, err
		}
		query += " ORDER BY " + col
	}

	return s.query(ctx, "Select", table, query, args)
}

func (s *postgresStore) Insert(ctx context.Context, table string, rows ...Row) ([]Row, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	into, err := quote(table)
	if err != nil {
		return nil, err
	}

	cols := sortedColumns(rows[0])
	quoted := make([]string, len(cols))
	for i, c := range cols {
		if quoted[i], err = quote(c); err != nil {
			return nil, err
		}
	}

	args := make([]any, 0, len(rows)*len(cols))
	tuples := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(cols) {
			return nil, ErrColumnMismatch
		}
		ph := make([]string, len(cols))
		for i, c := range cols {
			v, ok := row[c]
			if !ok {
				return nil, ErrColumnMismatch
			}
			args = append(args, v)
			ph[i] = fmt.Sprintf("$%d", len(args))
		}
		tuples = append(tuples, "("+strings.Join(ph, ", ")+")")
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s RETURNING *",
		into, strings.Join(quoted, ", "), strings.Join(tuples, ", "),
	)

	return s.query(ctx, "Insert", table, query, args)
}

func (s *postgresStore) Update(ctx context.Context, table string, patch Row, f Filter) ([]Row, error) {
	if f.Empty() {
		return nil, ErrEmptyFilter
	}
	if len(patch) == 0 {
		return nil, ErrEmptyPatch
	}

	target, err := quote(table)
	if err != nil {
		return nil, err
	}

	cols := sortedColumns(patch)
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	for i, c := range cols {
		q, err := quote(c)
		if err != nil {
			return nil, err
		}
		args = append(args, patch[c])
		sets[i] = fmt.Sprintf("%s = $%d", q, len(args))
	}

	where, whereArgs, err := buildWhere(f, len(args)+1)
	if err != nil {
		return nil, err
	}
	args = append(args, whereArgs...)

	query := "UPDATE " + target + " SET " + strings.Join(sets, ", ") + where + " RETURNING *"
	return s.query(ctx, "Update", table, query, args)
}

func (s *postgresStore) Delete(ctx context.Context, table string, f Filter) error {
	if f.Empty() {
		return ErrEmptyFilter
	}

	from, err := quote(table)
	if err != nil {
		return err
	}

	where, args, err := buildWhere(f, 1)
	if err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+from+where, args...); err != nil {
		logger.FromCtx(ctx).Error("record delete failed",
			zap.String("layer", "recordstore"),
			zap.String("table", table),
			zap.Error(err),
		)
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func (s *postgresStore) query(ctx context.Context, method, table, query string, args []any) ([]Row, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "recordstore"),
		zap.String("method", method),
		zap.String("table", table),
	)

	log.Debug("executing query", zap.String("query", query), zap.Int("args", len(args)))

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), table, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		m := make(map[string]any)
		if err := rows.MapScan(m); err != nil {
			log.Error("failed to scan row", zap.Error(err))
			return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), table, err)
		}
		row := make(Row, len(m))
		for k, v := range m {
			row[k] = normalize(v)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		log.Error("rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), table, err)
	}

	return out, nil
}

// buildWhere renders the filter starting at placeholder $start.
func buildWhere(f Filter, start int) (string, []any, error) {
	if f.Empty() {
		return "", nil, nil
	}

	var (
		clauses []string
		args    []any
		n       = start
	)

	for _, p := range f.preds {
		col, err := quote(p.column)
		if err != nil {
			return "", nil, err
		}

		switch p.op {
		case opEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
			args = append(args, p.values[0])
			n++
		case opIn:
			if len(p.values) == 0 {
				clauses = append(clauses, "FALSE")
				continue
			}
			ph := make([]string, len(p.values))
			for i, v := range p.values {
				ph[i] = fmt.Sprintf("$%d", n)
				args = append(args, v)
				n++
			}
			clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, strings.Join(ph, ", ")))
		case opIsNull:
			clauses = append(clauses, col+" IS NULL")
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func quote(name string) (string, error) {
	if !identifierRegex.MatchString(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}
	return pq.QuoteIdentifier(name), nil
}

func sortedColumns(r Row) []string {
	cols := make([]string, 0, len(r))
	for c := range r {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
