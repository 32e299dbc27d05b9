package progress

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/urbanrisk/crimeml/pkg/errors"
)

// Cache stores the latest snapshot per (entity, stage) key with a TTL.
// Writes are best-effort from the tracker's perspective.
type Cache interface {
	Put(ctx context.Context, key string, snap Snapshot, ttl time.Duration) error
	Get(ctx context.Context, key string) (*Snapshot, error)
}

// MemoryCache is an in-process Cache. Entries expire lazily on Get.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

func (c *MemoryCache) Put(_ context.Context, key string, snap Snapshot, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{snap: snap, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, nil
	}
	snap := entry.snap
	return &snap, nil
}

// RedisCache stores snapshots as JSON values in redis with a TTL, so
// every worker and the serving tier see the same progress state.
type RedisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a RedisCache with the given key prefix.
func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "crimeml:progress:"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) Put(ctx context.Context, key string, snap Snapshot, ttl time.Duration) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "encode snapshot")
	}
	if err := c.client.Set(ctx, c.prefix+key, payload, ttl).Err(); err != nil {
		return errors.Wrap(err, "cache snapshot")
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Snapshot, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read snapshot")
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	return &snap, nil
}
