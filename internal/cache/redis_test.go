package cache

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/code-validator/internal/validator"
)

func TestKey(t *testing.T) {
	k := Key(1, 125, "print(1)")
	assert.True(t, strings.HasPrefix(k, KeyPrefix))
	assert.Len(t, k, len(KeyPrefix)+64)

	assert.Equal(t, k, Key(1, 125, "print(1)"))
	assert.NotEqual(t, k, Key(2, 125, "print(1)"))
	assert.NotEqual(t, k, Key(1, 100, "print(1)"))
	assert.NotEqual(t, k, Key(1, 125, "print(2)"))
	// separators keep adjacent fields from running together
	assert.NotEqual(t, Key(1, 12, "3"), Key(1, 1, "23"))
}

func TestRedisCacheUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := newRedisCache(client, 0)
	defer c.Close()
	assert.Equal(t, DefaultTTL, c.ttl)

	ctx := context.Background()
	_, hit, err := c.Get(ctx, 1, 100, "x = 1")
	assert.Error(t, err)
	assert.False(t, hit)
	assert.Error(t, c.Set(ctx, 1, 100, "x = 1", &validator.LintingResult{}))
	assert.Error(t, c.HealthCheck(ctx))

	_, err = NewRedisCache(ctx, RedisConfig{Address: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDRESS not set, skipping redis tests")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, RedisConfig{Address: addr, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	code := "# " + uuid.NewString()
	_, hit, err := c.Get(ctx, 1, 125, code)
	require.NoError(t, err)
	assert.False(t, hit)

	want := &validator.LintingResult{
		IsValid:  false,
		Errors:   []string{"Missing required pattern: `def calculate_sum`"},
		Warnings: []string{},
		Score:    105,
		Feedback: validator.HeadlineIssues,
	}
	require.NoError(t, c.Set(ctx, 1, 125, code, want))

	got, hit, err := c.Get(ctx, 1, 125, code)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, want, got)

	ttl, err := c.Client().TTL(ctx, Key(1, 125, code)).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)
	assert.Greater(t, ttl, time.Duration(0))
}
