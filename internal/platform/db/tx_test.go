package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
	statements []string
	args       [][]any
}

func (f *fakeTx) Commit(ctx context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(ctx context.Context) error {
	if !f.committed {
		f.rolledBack = true
	}
	return nil
}

func (f *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.statements = append(f.statements, sql)
	f.args = append(f.args, args)
	return pgconn.CommandTag{}, nil
}

type fakeStarter struct {
	tx   *fakeTx
	opts pgx.TxOptions
}

func (f *fakeStarter) BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	f.opts = opts
	return f.tx, nil
}

func TestWithTxCommitsOnSuccess(t *testing.T) {
	starter := &fakeStarter{tx: &fakeTx{}}
	require.NoError(t, WithTx(context.Background(), starter, func(pgx.Tx) error { return nil }))
	assert.True(t, starter.tx.committed)
	assert.False(t, starter.tx.rolledBack)
	assert.Equal(t, pgx.ReadCommitted, starter.opts.IsoLevel)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	starter := &fakeStarter{tx: &fakeTx{}}
	boom := errors.New("boom")
	err := WithTx(context.Background(), starter, func(pgx.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, starter.tx.committed)
	assert.True(t, starter.tx.rolledBack)
}

func TestActAsSetsClaimAndRole(t *testing.T) {
	tx := &fakeTx{}
	require.NoError(t, ActAs(context.Background(), tx, "authenticated", "0b7c"))
	require.Len(t, tx.statements, 2)
	assert.Contains(t, tx.statements[0], "request.jwt.claim.sub")
	assert.Equal(t, []any{"0b7c"}, tx.args[0])
	assert.Equal(t, `SET LOCAL ROLE "authenticated"`, tx.statements[1])

	tx = &fakeTx{}
	require.NoError(t, ActAs(context.Background(), tx, "", "0b7c"))
	assert.Len(t, tx.statements, 1)
}
