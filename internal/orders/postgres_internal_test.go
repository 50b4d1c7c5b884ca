package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyPGError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"insufficient privilege", &pgconn.PgError{Code: "42501", Message: "new row violates row-level security policy"}, ErrPermissionDenied},
		{"wrapped insufficient privilege", fmt.Errorf("update: %w", &pgconn.PgError{Code: "42501"}), ErrPermissionDenied},
		{"query canceled", &pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}, ErrTransient},
		{"check violation", &pgconn.PgError{Code: "23514"}, ErrValidation},
		{"invalid text", &pgconn.PgError{Code: "22P02"}, ErrValidation},
		{"not null", &pgconn.PgError{Code: "23502"}, ErrValidation},
		{"unique violation", &pgconn.PgError{Code: "23505"}, ErrDuplicate},
		{"no rows", pgx.ErrNoRows, ErrNotFound},
		{"deadline", context.DeadlineExceeded, ErrTransient},
		{"wrapped deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), ErrTransient},
		{"not pending passes through", fmt.Errorf("%w: order x is approved", ErrNotPending), ErrNotPending},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyPGError(tc.err)
			require.Error(t, got)
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestClassifyPGErrorKeepsTimeoutsOffTheFallbackPath(t *testing.T) {
	for _, err := range []error{
		&pgconn.PgError{Code: "57014"},
		context.DeadlineExceeded,
	} {
		assert.NotErrorIs(t, classifyPGError(err), ErrPermissionDenied)
	}
}

func TestClassifyPGErrorLeavesUnknownErrorsAlone(t *testing.T) {
	assert.NoError(t, classifyPGError(nil))

	other := &pgconn.PgError{Code: "40001"}
	got := classifyPGError(other)
	assert.Same(t, other, got)
	for _, sentinel := range []error{ErrPermissionDenied, ErrTransient, ErrValidation, ErrNotFound} {
		assert.False(t, errors.Is(got, sentinel), sentinel.Error())
	}
}

func TestDeleteMissed(t *testing.T) {
	id := uuid.New()

	hidden := classifyPGError(deleteMissed(id, StatusPending))
	assert.ErrorIs(t, hidden, ErrPermissionDenied)
	assert.NotErrorIs(t, hidden, ErrNotPending)

	moved := classifyPGError(deleteMissed(id, StatusApproved))
	assert.ErrorIs(t, moved, ErrNotPending)
	assert.Contains(t, moved.Error(), "approved")
}
