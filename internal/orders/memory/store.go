// Package memory provides an in-process order store used by tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medstock/medstock/internal/orders"
)

// Store keeps orders in memory. DirectErr, when set, is returned by every
// caller-scoped status write, which lets tests simulate row-level security
// rejections. Clock stamps UpdatedAt on status writes; nil means time.Now.
type Store struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]orders.Order
	seq    []uuid.UUID

	DirectErr error
	Clock     func() time.Time

	directWrites   int
	elevatedWrites int
	deletes        int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{orders: make(map[uuid.UUID]orders.Order)}
}

// Seed inserts orders as-is.
func (s *Store) Seed(list ...orders.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range list {
		if _, ok := s.orders[o.ID]; !ok {
			s.seq = append(s.seq, o.ID)
		}
		s.orders[o.ID] = o.Clone()
	}
}

// ListOrders returns order rows without items, in insertion order.
func (s *Store) ListOrders(ctx context.Context) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Order, 0, len(s.seq))
	for _, id := range s.seq {
		o := s.orders[id].Clone()
		o.Items = nil
		out = append(out, o)
	}
	return out, nil
}

// ListItems returns every item row.
func (s *Store) ListItems(ctx context.Context) ([]orders.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []orders.Item
	for _, id := range s.seq {
		out = append(out, s.orders[id].Items...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderID.String() < out[j].OrderID.String() })
	return out, nil
}

// GetOrder loads one order with its items.
func (s *Store) GetOrder(ctx context.Context, id uuid.UUID) (orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrNotFound, id)
	}
	return o.Clone(), nil
}

// InsertOrder stores a new order.
func (s *Store) InsertOrder(ctx context.Context, caller orders.Caller, order orders.Order) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.ID]; ok {
		return orders.Order{}, fmt.Errorf("%w: order %s exists", orders.ErrDuplicate, order.ID)
	}
	s.orders[order.ID] = order.Clone()
	s.seq = append(s.seq, order.ID)
	return order.Clone(), nil
}

// DeletePending removes a pending order.
func (s *Store) DeletePending(ctx context.Context, caller orders.Caller, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("%w: %s", orders.ErrNotFound, id)
	}
	if o.Status != orders.StatusPending {
		return fmt.Errorf("%w: order %s is %s", orders.ErrNotPending, id, o.Status)
	}
	delete(s.orders, id)
	for i, candidate := range s.seq {
		if candidate == id {
			s.seq = append(s.seq[:i], s.seq[i+1:]...)
			break
		}
	}
	s.deletes++
	return nil
}

// ApplyStatus writes patch as caller, or fails with DirectErr when set.
func (s *Store) ApplyStatus(ctx context.Context, caller orders.Caller, id uuid.UUID, patch orders.Patch) (orders.Order, error) {
	s.mu.Lock()
	s.directWrites++
	directErr := s.DirectErr
	s.mu.Unlock()
	if directErr != nil {
		return orders.Order{}, directErr
	}
	return s.apply(ctx, id, patch)
}

// ApplyStatusElevated writes patch without caller checks.
func (s *Store) ApplyStatusElevated(ctx context.Context, id uuid.UUID, patch orders.Patch) (orders.Order, error) {
	s.mu.Lock()
	s.elevatedWrites++
	s.mu.Unlock()
	return s.apply(ctx, id, patch)
}

func (s *Store) apply(ctx context.Context, id uuid.UUID, patch orders.Patch) (orders.Order, error) {
	if err := ctx.Err(); err != nil {
		return orders.Order{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, fmt.Errorf("%w: %s", orders.ErrNotFound, id)
	}
	updated := patch.Apply(o)
	updated.UpdatedAt = s.now()
	s.orders[id] = updated
	return updated.Clone(), nil
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// DirectWrites reports how many caller-scoped status writes were attempted.
func (s *Store) DirectWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.directWrites
}

// ElevatedWrites reports how many elevated status writes were attempted.
func (s *Store) ElevatedWrites() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.elevatedWrites
}

// Deletes reports how many orders were deleted.
func (s *Store) Deletes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deletes
}

var (
	_ orders.Store        = (*Store)(nil)
	_ orders.DirectWriter = (*Store)(nil)
)
