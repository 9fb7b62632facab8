package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICache abstracts the cache operations the repositories need.
type ICache interface {
	// Get fetches a cached value
	Get(ctx context.Context, key string) *redis.StringCmd
	// Set stores a value with an expiration
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	// Del removes keys
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	// Pipeline creates a pipeline
	Pipeline() redis.Pipeliner
}
