package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisChecker verifies Redis connectivity
type RedisChecker struct {
	BaseChecker
	client redis.UniversalClient
}

// NewRedisChecker creates a checker over an existing client
func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{
		BaseChecker: BaseChecker{checkerType: "redis"},
		client:      client,
	}
}

// HealthCheck pings Redis
func (c *RedisChecker) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
