package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxStarter begins transactions. *pgxpool.Pool satisfies it.
type TxStarter interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// WithTx executes a function within a ReadCommitted transaction.
func WithTx(ctx context.Context, starter TxStarter, fn func(pgx.Tx) error) error {
	return WithTxOptions(ctx, starter, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

// WithTxOptions executes fn within a transaction started with opts.
func WithTxOptions(ctx context.Context, starter TxStarter, opts pgx.TxOptions, fn func(pgx.Tx) error) error {
	tx, err := starter.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// ActAs switches the current transaction to role and exposes subject as the
// request.jwt.claim.sub setting so row-level security policies see the caller.
// Both settings are transaction-local.
func ActAs(ctx context.Context, tx pgx.Tx, role, subject string) error {
	if _, err := tx.Exec(ctx, `SELECT set_config('request.jwt.claim.sub', $1, true)`, subject); err != nil {
		return fmt.Errorf("platform/db: set claim: %w", err)
	}
	if role == "" {
		return nil
	}
	if _, err := tx.Exec(ctx, "SET LOCAL ROLE "+pgx.Identifier{role}.Sanitize()); err != nil {
		return fmt.Errorf("platform/db: set role: %w", err)
	}
	return nil
}
