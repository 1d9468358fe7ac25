/*
cache.go - Optional redis read cache for wallet and history responses

PURPOSE:
  Wallet state and history are read far more often than they change (the
  UI polls them). When REDIS_ADDR is configured, GET responses are cached
  for a short TTL and invalidated on every write path for the wallet. A
  nil Cache disables everything, so the engine, tests, and dev mode run
  without redis.

  Cache failures are never fatal: a miss or redis error just falls
  through to the store.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 60 * time.Second

type Cache struct {
	rdb *redis.Client
}

// NewCache returns a Cache backed by redis, or nil when addr is empty.
func NewCache(addr, password string, db int) *Cache {
	if addr == "" {
		return nil
	}
	return &Cache{rdb: redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})}
}

// Get unmarshals the cached value into dest, reporting whether it was found.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return false
	}
	return json.Unmarshal([]byte(val), dest) == nil
}

// Set stores the value with the standard TTL. Best effort.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.rdb.Set(ctx, key, b, cacheTTL).Err()
}

// InvalidateWallet drops every cached response for the wallet.
func (c *Cache) InvalidateWallet(ctx context.Context, walletID string) {
	if c == nil {
		return
	}
	_ = c.rdb.Del(ctx, walletKey(walletID), historyKey(walletID)).Err()
}

func walletKey(walletID string) string  { return "wallet:" + walletID }
func historyKey(walletID string) string { return "history:" + walletID }
