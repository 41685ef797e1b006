// Package repositories implements the domain repository interfaces on
// PostgreSQL.  Every repository works through a queryExecutor so the same
// code serves both the pool and an open transaction; the transactional
// store hands out tx-bound instances.
package repositories

import (
	"context"
	"database/sql"

	"github.com/mutisyag/ozone-sub000/pkg/errors"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// notFoundOr maps sql.ErrNoRows to the given not-found error and wraps
// anything else as a database error.
func notFoundOr(err error, notFound *errors.AppError, op string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, op)
}
