package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fibertrail/fibertrail/internal/shared"
)

// serializationFailure is the SQLSTATE Postgres raises under RepeatableRead
// when a locking read lands on a row another transaction updated after this
// transaction's snapshot.
const serializationFailure = "40001"

// WithTx runs fn inside a RepeatableRead transaction and commits on success.
// Workflow transitions rely on this isolation level together with a row lock
// on the project, so two transitions on the same project never interleave.
// Any error from fn rolls the whole unit of work back.
//
// The loser of a race on one row surfaces as a serialization failure before
// it ever re-reads state; that is a stale-precondition outcome, so it maps
// to the conflict taxonomy rather than an internal error.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return classifyTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyTxError(fmt.Errorf("platform/db: commit tx: %w", err))
	}
	return nil
}

func classifyTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == serializationFailure {
		return fmt.Errorf("transaction lost a concurrent update race: %w", shared.ErrConflict)
	}
	return err
}
