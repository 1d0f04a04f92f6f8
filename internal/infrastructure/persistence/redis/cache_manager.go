package redis

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/astragrid/pkg/logger"
)

// errCacheMiss is returned by getJSON when the key does not exist.
var errCacheMiss = stderrors.New("cache miss")

// CacheManager stores JSON values with a TTL.
type CacheManager struct {
	client redis.UniversalClient
	log    logger.Logger
}

// NewCacheManager creates a new CacheManager.
func NewCacheManager(conn *RedisConnection, log logger.Logger) *CacheManager {
	return &CacheManager{client: conn.Client(), log: log}
}

func (c *CacheManager) setJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, b, ttl).Err()
}

func (c *CacheManager) getJSON(ctx context.Context, key string, dst interface{}) error {
	b, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return errCacheMiss
		}
		return err
	}
	return json.Unmarshal(b, dst)
}

func (c *CacheManager) hsetJSON(ctx context.Context, key, field string, value interface{}, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, field, b)
	pipe.Expire(ctx, key, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (c *CacheManager) hgetJSON(ctx context.Context, key, field string, dst interface{}) error {
	b, err := c.client.HGet(ctx, key, field).Bytes()
	if err != nil {
		if stderrors.Is(err, redis.Nil) {
			return errCacheMiss
		}
		return err
	}
	return json.Unmarshal(b, dst)
}

func (c *CacheManager) delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}
