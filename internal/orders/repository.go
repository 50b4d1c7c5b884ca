package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store abstracts the order tables.
type Store interface {
	ListOrders(ctx context.Context) ([]Order, error)
	ListItems(ctx context.Context) ([]Item, error)
	GetOrder(ctx context.Context, id uuid.UUID) (Order, error)
	InsertOrder(ctx context.Context, caller Caller, order Order) (Order, error)
	DeletePending(ctx context.Context, caller Caller, id uuid.UUID) error
}

// CachedSnapshot is an order set tagged with the cache generation it was
// assembled under.
type CachedSnapshot struct {
	Generation int64
	Orders     []Order
}

// SnapshotCache holds the last assembled order set. Load reports the current
// generation on a miss too; Save must ignore snapshots from an older one.
type SnapshotCache interface {
	Load(ctx context.Context) (CachedSnapshot, bool, error)
	Save(ctx context.Context, snap CachedSnapshot) error
	Invalidate(ctx context.Context) error
}

// SnapshotObserver is told whether each snapshot read hit the cache.
type SnapshotObserver interface {
	ObserveSnapshot(cached bool)
}

// Repository assembles order aggregates and caches the full snapshot until invalidated.
type Repository struct {
	store    Store
	cache    SnapshotCache
	logger   *slog.Logger
	observer SnapshotObserver
}

// RepositoryOption customises Repository instances.
type RepositoryOption func(*Repository)

// WithSnapshotObserver reports cache hits and misses to o.
func WithSnapshotObserver(o SnapshotObserver) RepositoryOption {
	return func(r *Repository) {
		r.observer = o
	}
}

// NewRepository constructs a Repository. A nil cache disables caching.
func NewRepository(store Store, cache SnapshotCache, logger *slog.Logger, opts ...RepositoryOption) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Repository{store: store, cache: cache, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Snapshot returns every order with its items. The result is a fresh copy
// the caller may modify freely.
func (r *Repository) Snapshot(ctx context.Context) ([]Order, error) {
	var (
		gen       int64
		cacheable bool
	)
	if r.cache != nil {
		cached, ok, err := r.cache.Load(ctx)
		switch {
		case err != nil:
			r.logger.Warn("order snapshot cache load", slog.Any("error", err))
		case ok:
			r.observe(true)
			return cached.Orders, nil
		default:
			gen, cacheable = cached.Generation, true
		}
	}

	var (
		orders []Order
		items  []Item
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = r.store.ListOrders(gctx)
		if err != nil {
			return fmt.Errorf("list orders: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		items, err = r.store.ListItems(gctx)
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.observe(false)
	snapshot := Assemble(orders, items)
	if cacheable {
		if err := r.cache.Save(ctx, CachedSnapshot{Generation: gen, Orders: snapshot}); err != nil {
			r.logger.Warn("order snapshot cache save", slog.Any("error", err))
		}
	}
	return cloneOrders(snapshot), nil
}

// Get reads a single order straight from the store.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Order, error) {
	return r.store.GetOrder(ctx, id)
}

// Insert stores a new order with its items.
func (r *Repository) Insert(ctx context.Context, caller Caller, order Order) (Order, error) {
	return r.store.InsertOrder(ctx, caller, order)
}

// DeletePending removes order id while it is still pending.
func (r *Repository) DeletePending(ctx context.Context, caller Caller, id uuid.UUID) error {
	return r.store.DeletePending(ctx, caller, id)
}

// Invalidate drops the cached snapshot.
func (r *Repository) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.Invalidate(ctx)
}

func (r *Repository) observe(cached bool) {
	if r.observer != nil {
		r.observer.ObserveSnapshot(cached)
	}
}

// Assemble joins items to their orders. Items whose order is absent are
// dropped; orders without items get an empty slice.
func Assemble(orders []Order, items []Item) []Order {
	out := make([]Order, len(orders))
	index := make(map[uuid.UUID]int, len(orders))
	for i, o := range orders {
		out[i] = o.Clone()
		out[i].Items = []Item{}
		index[o.ID] = i
	}
	for _, item := range items {
		pos, ok := index[item.OrderID]
		if !ok {
			continue
		}
		out[pos].Items = append(out[pos].Items, item)
	}
	return out
}
