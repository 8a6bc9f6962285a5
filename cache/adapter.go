// Package cache is the short-lived key/value layer for login sessions and
// read-through lookups. Ledger state never lives here.
package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/kyrhanu/ledger/cache/local"
	cacheredis "github.com/kyrhanu/ledger/cache/redis"
)

type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Close()
}

type CacheConfig struct {
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	LocalGCInterval time.Duration
}

// NewCache returns a Redis-backed Cache when RedisAddr is set,
// otherwise an in-process one.
func NewCache(cfg CacheConfig) (Cache, error) {
	if cfg.RedisAddr != "" {
		return cacheredis.NewCache(cacheredis.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
	}
	return local.NewCache(local.Config{GCInterval: cfg.LocalGCInterval})
}

// IsMiss reports whether err means the key was absent.
func IsMiss(err error) bool {
	return errors.Is(err, local.ErrNotFound) || errors.Is(err, cacheredis.ErrNotFound)
}

// SessionKey is where the active token of a player is kept.
func SessionKey(playerID int64) string {
	return "session:" + strconv.FormatInt(playerID, 10)
}
