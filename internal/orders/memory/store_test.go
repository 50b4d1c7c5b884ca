package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/orders/memory"
)

func TestStoreStatusWritesStampUpdatedAt(t *testing.T) {
	created := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	written := time.Date(2024, time.March, 2, 9, 30, 0, 0, time.UTC)
	order := orders.Order{
		ID:        uuid.New(),
		Status:    orders.StatusPending,
		CreatedBy: uuid.New(),
		CreatedAt: created,
		UpdatedAt: created,
		Items:     []orders.Item{},
	}

	store := memory.NewStore()
	store.Clock = func() time.Time { return written }
	store.Seed(order)
	ctx := context.Background()

	direct, err := store.ApplyStatus(ctx, orders.Caller{}, order.ID, orders.Patch{Status: orders.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, written, direct.UpdatedAt)
	assert.Equal(t, created, direct.CreatedAt)

	written = written.Add(time.Hour)
	elevated, err := store.ApplyStatusElevated(ctx, order.ID, orders.Patch{Status: orders.StatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, written, elevated.UpdatedAt)

	stored, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, written, stored.UpdatedAt)
}

func TestStoreDirectErrSkipsWrite(t *testing.T) {
	order := orders.Order{ID: uuid.New(), Status: orders.StatusPending, UpdatedAt: time.Unix(0, 0).UTC()}
	store := memory.NewStore()
	store.Seed(order)
	store.DirectErr = orders.ErrPermissionDenied

	_, err := store.ApplyStatus(context.Background(), orders.Caller{}, order.ID, orders.Patch{Status: orders.StatusApproved})
	require.ErrorIs(t, err, orders.ErrPermissionDenied)

	stored, err := store.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusPending, stored.Status)
	assert.Equal(t, order.UpdatedAt, stored.UpdatedAt)
	assert.Equal(t, 1, store.DirectWrites())
}
