package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

const (
	cacheVersionKey = "registry:version"
	// BumpChannel carries version bumps published after a store rebuild.
	BumpChannel = "registry.bump"

	// DefaultMemoryCacheSize is the number of result sets kept in process.
	DefaultMemoryCacheSize = 4096
	// DefaultMemoryCacheTTL bounds how long a result set is served from process memory.
	DefaultMemoryCacheTTL = 10 * time.Minute
)

// Cache stores lookup results. Invalidate drops everything cached so far.
type Cache interface {
	FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error
	Invalidate(ctx context.Context) error
}

// CacheKey hashes the lookup kind and arguments into a fixed-length key.
func CacheKey(kind string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "registry:" + kind + ":" + hex.EncodeToString(sum[:16])
}

// RedisCache wraps Redis based caching with versioning controls. Bumping the version
// orphans every key written before it.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache instantiates the cache helper.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Version returns the current cache version, initialising when missing.
func (c *RedisCache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// FetchJSON loads a cached value or populates it using the loader. A Redis outage
// degrades to calling the loader directly.
func (c *RedisCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if c == nil || c.client == nil {
		return loadInto(ctx, dest, loader)
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return loadInto(ctx, dest, loader)
	}
	versioned := fmt.Sprintf("%s:%d", key, ver)

	payload, err := c.client.Get(ctx, versioned).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return loadInto(ctx, dest, loader)
	}
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_ = c.client.Set(ctx, versioned, raw, c.ttl).Err()
	return json.Unmarshal(raw, dest)
}

// Invalidate increments the global version and publishes it to other instances.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("cache: bump version: %w", err)
	}
	return c.client.Publish(ctx, BumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation subscribes to version bumps and calls onBump for each one, so
// in-process layers can drop their own state. It returns once the subscription is live.
func (c *RedisCache) ListenForInvalidation(ctx context.Context, onBump func(version int64)) error {
	if c == nil || c.client == nil {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("cache: subscribe: %w", err)
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				if onBump != nil {
					onBump(ver)
				}
			}
		}
	}()
	return nil
}

// MemoryCache keeps serialized result sets in an in-process LRU. Entries expire after
// the TTL, so a store replaced behind the process's back is picked up eventually.
type MemoryCache struct {
	entries    *expirable.LRU[string, []byte]
	generation atomic.Int64
}

// NewMemoryCache creates an LRU cache holding up to size entries for at most ttl each.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = DefaultMemoryCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultMemoryCacheTTL
	}
	return &MemoryCache{entries: expirable.NewLRU[string, []byte](size, nil, ttl)}
}

// FetchJSON loads a cached value or populates it using the loader.
func (c *MemoryCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("cache: loader required")
	}
	if raw, ok := c.entries.Get(key); ok {
		return json.Unmarshal(raw, dest)
	}
	gen := c.generation.Load()
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	// A result computed against a store that was swapped meanwhile is not kept.
	if c.generation.Load() == gen {
		c.entries.Add(key, raw)
	}
	return json.Unmarshal(raw, dest)
}

// Invalidate purges every entry.
func (c *MemoryCache) Invalidate(context.Context) error {
	c.generation.Add(1)
	c.entries.Purge()
	return nil
}

// Len reports the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.entries.Len()
}

func loadInto(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

// TieredCache serves from the in-process LRU and falls back to Redis before the
// repository. Invalidate bumps the Redis version and purges the local layer; peers
// purge theirs when the bump reaches them through ListenForInvalidation.
type TieredCache struct {
	local  *MemoryCache
	shared *RedisCache
}

// NewTieredCache layers local in front of shared.
func NewTieredCache(local *MemoryCache, shared *RedisCache) *TieredCache {
	return &TieredCache{local: local, shared: shared}
}

// FetchJSON loads a cached value or populates both layers using the loader.
func (c *TieredCache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	return c.local.FetchJSON(ctx, key, dest, func(ctx context.Context) (any, error) {
		var raw json.RawMessage
		if err := c.shared.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
}

// Invalidate bumps the shared version, then purges the local layer.
func (c *TieredCache) Invalidate(ctx context.Context) error {
	err := c.shared.Invalidate(ctx)
	_ = c.local.Invalidate(ctx)
	return err
}

// Listen purges the local layer whenever another process bumps the shared version.
func (c *TieredCache) Listen(ctx context.Context) error {
	return c.shared.ListenForInvalidation(ctx, func(int64) {
		_ = c.local.Invalidate(ctx)
	})
}
