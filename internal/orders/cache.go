package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryCache keeps the snapshot in process memory.
type MemoryCache struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	gen      int64
	orders   []Order
	storedAt time.Time
	valid    bool
}

// NewMemoryCache constructs a MemoryCache. A zero ttl never expires entries.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, now: time.Now}
}

// Load returns a copy of the cached snapshot.
func (c *MemoryCache) Load(ctx context.Context) (CachedSnapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	miss := CachedSnapshot{Generation: c.gen}
	if !c.valid {
		return miss, false, nil
	}
	if c.ttl > 0 && c.now().Sub(c.storedAt) > c.ttl {
		return miss, false, nil
	}
	return CachedSnapshot{Generation: c.gen, Orders: cloneOrders(c.orders)}, true, nil
}

// Save replaces the cached snapshot unless an invalidation happened since
// snap.Generation was read.
func (c *MemoryCache) Save(ctx context.Context, snap CachedSnapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Generation != c.gen {
		return nil
	}
	c.orders = cloneOrders(snap.Orders)
	c.storedAt = c.now()
	c.valid = true
	return nil
}

// Invalidate drops the cached snapshot.
func (c *MemoryCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.orders = nil
	c.valid = false
	return nil
}

const (
	redisVersionKey  = "orders:snapshot:version"
	redisSnapshotKey = "orders:snapshot"
)

// RedisCache shares the snapshot between instances. Invalidation bumps a
// version counter so stale entries are never read again.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache constructs a RedisCache.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Version returns the current snapshot version, initialising when missing.
func (c *RedisCache) Version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, redisVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, redisVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, redisVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func snapshotKey(ver int64) string {
	return fmt.Sprintf("%s:%d", redisSnapshotKey, ver)
}

// Load reads the snapshot stored under the current version.
func (c *RedisCache) Load(ctx context.Context) (CachedSnapshot, bool, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return CachedSnapshot{}, false, err
	}
	miss := CachedSnapshot{Generation: ver}
	payload, err := c.client.Get(ctx, snapshotKey(ver)).Bytes()
	if errors.Is(err, redis.Nil) {
		return miss, false, nil
	}
	if err != nil {
		return miss, false, err
	}
	var orders []Order
	if err := json.Unmarshal(payload, &orders); err != nil {
		return miss, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return CachedSnapshot{Generation: ver, Orders: orders}, true, nil
}

// Save stores the snapshot under snap.Generation. The write is dropped when
// the version moved on, including a bump racing the save itself.
func (c *RedisCache) Save(ctx context.Context, snap CachedSnapshot) error {
	raw, err := json.Marshal(snap.Orders)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		ver, err := tx.Get(ctx, redisVersionKey).Int64()
		if err != nil {
			return err
		}
		if ver != snap.Generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, snapshotKey(ver), raw, c.ttl)
			return nil
		})
		return err
	}, redisVersionKey)
	if errors.Is(err, redis.TxFailedErr) || errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Invalidate bumps the version.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, redisVersionKey).Err()
}

var (
	_ SnapshotCache = (*MemoryCache)(nil)
	_ SnapshotCache = (*RedisCache)(nil)
)
