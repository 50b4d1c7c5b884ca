package privileged_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/orders/memory"
	"github.com/medstock/medstock/internal/orders/privileged"
	"github.com/medstock/medstock/internal/rbac"
)

func newWorkflow(store *memory.Store, invoker orders.PrivilegedInvoker) *orders.Service {
	return orders.NewService(orders.ServiceConfig{
		Repository: orders.NewRepository(store, orders.NewMemoryCache(0), nil),
		Gateway:    orders.NewGateway(orders.GatewayConfig{Direct: store, Privileged: invoker, Timeout: 5 * time.Second}),
		Now:        fixedClock,
	})
}

func TestFallbackMatchesDirectOutcome(t *testing.T) {
	f := newFunction(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	manager, token := f.user(t, rbac.RoleWarehouseManager, true)
	caller := orders.Caller{Actor: manager, Credential: token}
	order := pendingOrder(manager.ID)

	directStore := memory.NewStore()
	directStore.Seed(order)
	f.store.Seed(order)
	f.store.DirectErr = orders.ErrPermissionDenied

	direct := newWorkflow(directStore, nil)
	fallback := newWorkflow(f.store, privileged.NewClient(srv.URL+"/functions/v1", srv.Client()))

	ctx := context.Background()
	for _, target := range []orders.Status{orders.StatusApproved, orders.StatusDelivered} {
		want, err := direct.UpdateStatus(ctx, caller, order.ID, target)
		require.NoError(t, err)
		got, err := fallback.UpdateStatus(ctx, caller, order.ID, target)
		require.NoError(t, err)

		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.ApprovedBy, got.ApprovedBy)
		assert.Equal(t, want.ReceivedBy, got.ReceivedBy)
		for _, pair := range [][2]*time.Time{{want.ApprovedAt, got.ApprovedAt}, {want.DeliveredAt, got.DeliveredAt}, {want.ReceivedAt, got.ReceivedAt}} {
			if pair[0] == nil {
				assert.Nil(t, pair[1])
				continue
			}
			require.NotNil(t, pair[1])
			assert.True(t, pair[0].Equal(*pair[1]))
		}
		assert.Equal(t, want.Items, got.Items)
	}

	stored, err := f.store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orders.StatusDelivered, stored.Status)
	assert.Equal(t, 2, f.store.DirectWrites())
	assert.Equal(t, 2, f.store.ElevatedWrites())
	assert.Equal(t, 0, directStore.ElevatedWrites())
}

func TestFallbackDoesNotWidenPermissions(t *testing.T) {
	f := newFunction(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	supervisor, token := f.user(t, rbac.RoleSupervisor, true)
	order := pendingOrder(supervisor.ID)
	order.Status = orders.StatusApproved
	f.store.Seed(order)
	f.store.DirectErr = orders.ErrPermissionDenied

	client := privileged.NewClient(srv.URL+"/functions/v1", srv.Client())
	_, err := client.UpdateStatus(context.Background(), token, order.ID, orders.StatusDelivered)
	assert.ErrorIs(t, err, orders.ErrForbidden)
	assert.Equal(t, 0, f.store.ElevatedWrites())
}
