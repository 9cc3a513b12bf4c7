package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/majordome-go/majordome"
	"github.com/majordome-go/majordome/memo"
)

// DB is a connection pool with cached prepared statements.
type DB struct {
	db         *sql.DB
	statements *memo.Cache[string, *sql.Stmt]
	hashed     *memo.Cache[uint64, *sql.Stmt]
	logger     majordome.Logger
}

// SQL returns the underlying pool.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Prepare returns the prepared statement for query, preparing it on first
// use.
func (d *DB) Prepare(ctx context.Context, query string) (*sql.Stmt, error) {
	return d.statements.GetOrCompute(ctx, query, func(ctx context.Context) (*sql.Stmt, error) {
		d.logger.Debug("Preparing SQL", "query", query)
		return d.db.PrepareContext(ctx, query)
	})
}

// PrepareByHash returns the statement cached under hash. genQuery is only
// called when the statement has to be prepared.
func (d *DB) PrepareByHash(ctx context.Context, hash uint64, genQuery func() string) (*sql.Stmt, error) {
	return d.hashed.GetOrCompute(ctx, hash, func(ctx context.Context) (*sql.Stmt, error) {
		query := genQuery()
		d.logger.Debug("Preparing SQL by hash", "hash", hash, "query", query)
		return d.db.PrepareContext(ctx, query)
	})
}

// Exec runs a statement that returns no rows.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	stmt, err := d.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.ExecContext(ctx, args...)
}

// Query runs a statement that returns rows.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	stmt, err := d.Prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return stmt.QueryContext(ctx, args...)
}

// QueryRow runs a statement expected to return at most one row. Preparation
// errors are reported by Scan.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	stmt, err := d.Prepare(ctx, query)
	if err != nil {
		return d.db.QueryRowContext(ctx, query, args...)
	}
	return stmt.QueryRowContext(ctx, args...)
}

// Close closes every cached statement, then the pool.
func (d *DB) Close() error {
	var errs []error
	closeStmt := func(stmt *sql.Stmt) {
		if err := stmt.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	d.statements.Range(func(_ string, stmt *sql.Stmt) bool {
		closeStmt(stmt)
		return true
	})
	d.hashed.Range(func(_ uint64, stmt *sql.Stmt) bool {
		closeStmt(stmt)
		return true
	})
	if err := d.db.Close(); err != nil {
		errs = append(errs, err)
	}
	d.logger.Info("Database closed")
	return errors.Join(errs...)
}

// Select runs query and scans every row with scan.
func Select[T any](ctx context.Context, d *DB, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := d.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ExpectOne returns the single element of rows. entity names the rows in the
// not-found and too-many errors.
func ExpectOne[T any](entity string, rows []T) (T, error) {
	var zero T
	switch len(rows) {
	case 0:
		return zero, ErrNotFoundExpectedOne(entity)
	case 1:
		return rows[0], nil
	default:
		return zero, ErrTooManyResultsExpectedOne(entity, len(rows))
	}
}
