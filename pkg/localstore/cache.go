package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"blockconnect/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

// RelationTTL bounds how long cached follower lists are served when the
// contract is unreachable.
const RelationTTL = 24 * time.Hour

// ContentTTL is how long decoded content blobs stay cached. Blobs are
// immutable, the TTL only bounds memory.
const ContentTTL = 6 * time.Hour

// FeedTTL is how long a computed home feed is reused.
const FeedTTL = time.Minute

// Cache stores JSON values under a key with a TTL.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCache(rdb *redis.Client, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, ttl: ttl}
}

func (c *Cache) Set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

// Get decodes the cached value into v, or returns ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string, v interface{}) error {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to drop %s: %w", key, err)
	}
	return nil
}
