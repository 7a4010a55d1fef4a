package store

import (
	"context"

	perr "ngmeta/internal/platform/errors"
)

// ExecOne runs a single row write; any other affected count is an invariant violation
func ExecOne(ctx context.Context, q RowQuerier, sql string, args ...any) error {
	tag, err := q.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if n := tag.RowsAffected(); n != 1 {
		return perr.Invariantf("%s affected %d rows, want 1", tag.String(), n)
	}
	return nil
}

// Scalar reads the first column of the first row
func Scalar[T any](ctx context.Context, q RowQuerier, sql string, args ...any) (T, error) {
	var v T
	err := q.QueryRow(ctx, sql, args...).Scan(&v)
	return v, err
}

// One maps exactly one row with scan
// An empty result is perr.ErrNotFound; a second row is an invariant violation
func One[T any](ctx context.Context, q RowQuerier, scan func(Row) (T, error), sql string, args ...any) (T, error) {
	var zero T
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return zero, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return zero, err
		}
		return zero, perr.ErrNotFound
	}
	v, err := scan(rows)
	switch {
	case err != nil:
		return zero, err
	case rows.Next():
		return zero, perr.Invariantf("query returned more than one row")
	}
	return v, rows.Err()
}
