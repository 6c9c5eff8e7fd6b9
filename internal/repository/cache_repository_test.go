package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	appErrors "github.com/noah-isme/smart-haryana-gateway/pkg/errors"
)

func TestRedisRepositoriesWithoutClient(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheRepository(nil)
	var dest map[string]string
	assert.ErrorIs(t, cache.Get(ctx, "k", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, cache.Set(ctx, "k", "v", time.Minute))
	assert.NoError(t, cache.DeleteByPattern(ctx, "issues:*"))
	assert.NoError(t, cache.Ping(ctx))

	limiter := NewRateLimitRepository(nil, "ratelimit:issues")
	count, ttl, err := limiter.Hit(ctx, "user:1", 24*time.Hour)
	assert.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, ttl)
}
