// Package cache provides a small JSON cache used for the campus building
// directory. Entries live in redis when a client is configured and in an
// in-process map otherwise, so the bot runs fine without redis.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache stores JSON-encoded values with a per-cache TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration

	mu  sync.RWMutex
	mem map[string]entry
}

// New connects to redis when redisURL is non-empty. A failed connection is
// logged and the cache degrades to memory-only rather than failing startup.
func New(ctx context.Context, redisURL string, ttl time.Duration, log *logrus.Logger) *Cache {
	c := &Cache{
		ttl: ttl,
		mem: make(map[string]entry),
	}
	if redisURL == "" {
		return c
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.WithError(err).Warn("invalid redis url, using in-memory cache")
		return c
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("redis ping failed, using in-memory cache")
		_ = client.Close()
		return c
	}

	log.Info("cache backed by redis")
	c.client = client
	return c
}

// Get unmarshals the cached value for key into dest. It returns false on a
// miss, an expired entry, or any backend error.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c.client != nil {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			return false
		}
		return json.Unmarshal(raw, dest) == nil
	}

	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return false
	}
	return json.Unmarshal(e.data, dest) == nil
}

// Set stores value under key for the cache TTL. Failures are swallowed: the
// cache is advisory and callers always have the upstream to fall back on.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	if c.client != nil {
		_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		return
	}

	c.mu.Lock()
	c.mem[key] = entry{data: raw, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
