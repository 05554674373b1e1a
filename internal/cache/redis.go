package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/code-validator/internal/validator"
)

// KeyPrefix namespaces cached linting results
const KeyPrefix = "validation:"

// DefaultTTL is used when RedisConfig.TTL is not set
const DefaultTTL = 10 * time.Minute

// RedisConfig holds result cache configuration
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisCache stores linting results keyed by stage and submitted code
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisCache(client, cfg.TTL), nil
}

func newRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

// Key derives the cache key for a submission. The points value is part of
// the key because it bounds the score.
func Key(stageID, points int, code string) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(stageID)))
	h.Write([]byte{'|'})
	h.Write([]byte(strconv.Itoa(points)))
	h.Write([]byte{'|'})
	h.Write([]byte(code))
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for a submission. A miss is (nil, false, nil).
func (c *RedisCache) Get(ctx context.Context, stageID, points int, code string) (*validator.LintingResult, bool, error) {
	raw, err := c.client.Get(ctx, Key(stageID, points, code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cached result: %w", err)
	}

	var result validator.LintingResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached result: %w", err)
	}
	return &result, true, nil
}

// Set stores a result for the configured TTL
func (c *RedisCache) Set(ctx context.Context, stageID, points int, code string, result *validator.LintingResult) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	if err := c.client.Set(ctx, Key(stageID, points, code), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// Client exposes the underlying client for health checks
func (c *RedisCache) Client() *redis.Client {
	return c.client
}

// HealthCheck verifies Redis connectivity
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.client.Close()
}
