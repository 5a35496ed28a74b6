// Package cache stores deterministic inference results in redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"autoblog/config"
)

const keyPrefix = "autoblog:inference:"

// NewRedisClient builds a client from config. It does not dial.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// InferenceCache is a JSON cache-aside store over redis.
type InferenceCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewInferenceCache(rdb redis.UniversalClient, ttl time.Duration) *InferenceCache {
	return &InferenceCache{rdb: rdb, ttl: ttl}
}

// Get decodes the cached value into dest. A miss returns (false, nil).
func (c *InferenceCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *InferenceCache) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, keyPrefix+key, raw, c.ttl).Err()
}

// Ping checks the redis connection.
func (c *InferenceCache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Key hashes its parts into a fixed-length cache key.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(h[:])
}
