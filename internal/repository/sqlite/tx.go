package sqlite

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/sakif/proman/internal/apperror"
)

// withTx runs fn inside one transaction: commit when fn returns nil, roll
// back otherwise. fn's error is returned unchanged so callers keep their
// typed failures (NotFound, Storage).
//
// Cascading deletes go through here, so a failure half way through leaves
// no orphaned rows behind.
func withTx(ctx context.Context, conn *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return apperror.Storage("sqlite: beginning transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperror.Storage("sqlite: committing transaction", err)
	}
	return nil
}

// rowsAffected returns how many rows an exec touched.
func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperror.Storage(op+": checking rows affected", err)
	}
	return n, nil
}
