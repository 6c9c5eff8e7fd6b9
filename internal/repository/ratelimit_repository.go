package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimitRepository counts events per key in fixed Redis windows.
type RateLimitRepository struct {
	client *redis.Client
	prefix string
}

// NewRateLimitRepository constructs the repository. Keys are namespaced by prefix.
func NewRateLimitRepository(client *redis.Client, prefix string) *RateLimitRepository {
	return &RateLimitRepository{client: client, prefix: prefix}
}

// Hit increments the counter for key, starting a window of length window on
// the first hit, and returns the new count and the time left in the window.
// A repository without a client never limits.
func (r *RateLimitRepository) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if r.client == nil {
		return 0, 0, nil
	}
	fullKey := r.prefix + ":" + key

	count, err := r.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis incr %s: %w", fullKey, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire %s: %w", fullKey, err)
		}
		return count, window, nil
	}

	ttl, err := r.client.TTL(ctx, fullKey).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis ttl %s: %w", fullKey, err)
	}
	if ttl < 0 {
		// Key lost its expiry; restart the window rather than limiting forever.
		if err := r.client.Expire(ctx, fullKey, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis expire %s: %w", fullKey, err)
		}
		ttl = window
	}
	return count, ttl, nil
}
