// Package health provides dependency health checkers for readiness probes.
package health

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// DBChecker verifies Postgres connectivity.
type DBChecker struct {
	db *sql.DB
}

// NewDBChecker creates a health checker for the given database handle.
func NewDBChecker(db *sql.DB) *DBChecker {
	return &DBChecker{db: db}
}

// HealthCheck pings the database.
func (c *DBChecker) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// RedisChecker verifies Redis connectivity.
type RedisChecker struct {
	client *redis.Client
}

// NewRedisChecker creates a health checker for the given Redis client.
func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client}
}

// HealthCheck pings Redis.
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}
