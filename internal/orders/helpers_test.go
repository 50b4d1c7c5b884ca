package orders_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/medstock/medstock/internal/orders"
	"github.com/medstock/medstock/internal/rbac"
	"github.com/medstock/medstock/internal/shared"
	_ "github.com/medstock/medstock/testing"
)

var fixedNow = time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func actor(role rbac.Role) rbac.Actor {
	return rbac.Actor{ID: uuid.New(), Role: role, Active: true}
}

func callerFor(a rbac.Actor) orders.Caller {
	return orders.Caller{Actor: a, Credential: "token-" + a.ID.String()}
}

func newOrder(status orders.Status, owner uuid.UUID, day int, quantities ...int) orders.Order {
	id := uuid.New()
	o := orders.Order{
		ID:            id,
		RequesterName: "Posto " + string(status),
		Subdistrict:   "Centro",
		RequestDate:   time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC),
		Status:        status,
		CreatedBy:     owner,
		CreatedAt:     time.Date(2024, time.March, day, 8, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2024, time.March, day, 8, 0, 0, 0, time.UTC),
		Items:         []orders.Item{},
	}
	for i, q := range quantities {
		o.Items = append(o.Items, orders.Item{
			ID:            uuid.New(),
			OrderID:       id,
			ProductID:     uuid.New(),
			ProductName:   "Product " + string(rune('A'+i)),
			Quantity:      q,
			UnitOfMeasure: "box",
		})
	}
	return o
}

func assertSameOrder(t *testing.T, want, got orders.Order) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.CreatedBy, got.CreatedBy)
	assert.Equal(t, want.ApprovedBy, got.ApprovedBy)
	assert.Equal(t, want.ReceivedBy, got.ReceivedBy)
	assertSameTime(t, want.ApprovedAt, got.ApprovedAt, "approved_at")
	assertSameTime(t, want.DeliveredAt, got.DeliveredAt, "delivered_at")
	assertSameTime(t, want.ReceivedAt, got.ReceivedAt, "received_at")
	assert.True(t, want.RequestDate.Equal(got.RequestDate), "request_date")
	assert.Equal(t, len(want.Items), len(got.Items))
	for i := range want.Items {
		if i < len(got.Items) {
			assert.Equal(t, want.Items[i], got.Items[i])
		}
	}
}

func assertSameTime(t *testing.T, want, got *time.Time, field string) {
	t.Helper()
	if want == nil || got == nil {
		assert.Equal(t, want == nil, got == nil, field)
		return
	}
	assert.True(t, want.Equal(*got), "%s: want %s got %s", field, want, got)
}

type recordingApprovals struct {
	mu   sync.Mutex
	logs []shared.ApprovalLog
}

func (r *recordingApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingApprovals) List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []shared.ApprovalLog
	for _, l := range r.logs {
		if l.Module == module && l.RefID == ref {
			out = append(out, l)
		}
	}
	return out, nil
}

type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (m *memoryIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]struct{})
	}
	k := module + ":" + key
	if _, ok := m.keys[k]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = struct{}{}
	return nil
}

func (m *memoryIdempotency) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.keys {
		if len(k) >= len(key) && k[len(k)-len(key):] == key {
			delete(m.keys, k)
		}
	}
	return nil
}

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingObserver) ObserveMutation(path, outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[path+"/"+outcome]++
}

func (c *countingObserver) count(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key]
}
