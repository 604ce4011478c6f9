// Package dbx provides tiny DB abstractions shared by repositories: the
// DBTX interface implemented by both *sql.DB and *sql.Tx, a transaction
// helper and a check for single-row writes.
package dbx

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the subset of database/sql used by the repositories.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx begins a transaction, runs fn with it, then commits on success or
// rolls back on error or panic. Panics are rethrown.
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    _, err := tx.ExecContext(ctx, "UPDATE ...")
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}

// ExpectOneRow inspects the result of a write meant to touch exactly one row.
// Zero rows yields zeroErr; more than one is reported as unexpected.
func ExpectOneRow(res sql.Result, zeroErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	switch n {
	case 1:
		return nil
	case 0:
		return zeroErr
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
