package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CounterStore implements a shared fixed-window counter on Redis. Each
// increment pipelines INCR with an EXPIRE set only on the first hit, so the
// window starts when the first request lands and all replicas of the service
// share one count.
type CounterStore struct {
	client *redis.Client
	prefix string
}

// NewCounterStore creates a counter store. The prefix namespaces keys so
// unrelated limiters can share one Redis database.
func NewCounterStore(client *redis.Client, prefix string) *CounterStore {
	return &CounterStore{client: client, prefix: prefix}
}

// Incr increments the counter for key within the current window and returns
// the new count.
func (s *CounterStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	fullKey := s.prefix + ":" + key

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis counter incr: %w", err)
	}
	return incr.Val(), nil
}
