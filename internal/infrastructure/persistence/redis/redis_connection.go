// Package redis provides Redis connection management and the read-through
// caches that front the gorm stores.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/turtacn/astragrid/internal/config"
	"github.com/turtacn/astragrid/pkg/logger"
)

// RedisConnection manages Redis client lifecycle and health monitoring.
type RedisConnection struct {
	config *config.RedisConfig
	client redis.UniversalClient
	logger logger.Logger
}

// NewRedisConnection creates a new Redis connection manager instance.
func NewRedisConnection(cfg *config.RedisConfig, log logger.Logger) *RedisConnection {
	return &RedisConnection{
		config: cfg,
		logger: log.WithComponent("RedisConnection"),
	}
}

// NewRedisConnectionFromClient wraps an existing client, e.g. one pointed at miniredis.
func NewRedisConnectionFromClient(client redis.UniversalClient, log logger.Logger) *RedisConnection {
	return &RedisConnection{config: &config.RedisConfig{}, client: client, logger: log.WithComponent("RedisConnection")}
}

// Connect establishes the connection and validates it with a ping.
func (rc *RedisConnection) Connect(ctx context.Context) error {
	if rc.client != nil {
		rc.logger.Warn(ctx, "Redis connection already initialized")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         rc.config.Address,
		Password:     rc.config.Password,
		DB:           rc.config.DB,
		PoolSize:     rc.config.PoolSize,
		MinIdleConns: rc.config.MinIdleConns,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		rc.logger.Error(ctx, "Redis ping failed", err, logger.String("addr", rc.config.Address))
		_ = client.Close()
		return fmt.Errorf("redis ping failed: %w", err)
	}

	rc.client = client
	rc.logger.Info(ctx, "Redis connection established successfully",
		logger.String("addr", rc.config.Address),
		logger.Int("pool_size", rc.config.PoolSize),
	)
	return nil
}

// Client returns the underlying client.
func (rc *RedisConnection) Client() redis.UniversalClient {
	return rc.client
}

// HealthCheck pings the server and reports latency.
func (rc *RedisConnection) HealthCheck(ctx context.Context) (map[string]interface{}, error) {
	if rc.client == nil {
		return nil, fmt.Errorf("redis not connected")
	}
	start := time.Now()
	if err := rc.client.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":     "healthy",
		"latency_ms": time.Since(start).Milliseconds(),
	}, nil
}

// Close closes the client.
func (rc *RedisConnection) Close() error {
	if rc.client == nil {
		return nil
	}
	rc.logger.Info(context.Background(), "Closing Redis connection")
	return rc.client.Close()
}

//Personal.AI order the ending
