package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// CounterStore counts hits per key within a fixed window. The Redis-backed
// implementation shares the count across replicas; the in-process store below
// serves single-instance deployments.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimiter implements fixed-window rate limiting over a CounterStore.
type RateLimiter struct {
	store CounterStore
	log   *slog.Logger
}

// NewRateLimiter creates a rate limiter backed by the given store.
func NewRateLimiter(store CounterStore, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{store: store, log: logger}
}

// Limit returns middleware that allows maxPerMinute requests per key within
// each one-minute window. All requests share one key: the protected surface
// is the internal cron trigger, where the budget guards the database, not
// fairness between clients. If the store is unreachable the request is let
// through; the trigger must not go dark because the counter did.
func (rl *RateLimiter) Limit(key string, maxPerMinute int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			count, err := rl.store.Incr(r.Context(), key, time.Minute)
			if err != nil {
				rl.log.Warn("rate limit counter unavailable, allowing request", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			if count > int64(maxPerMinute) {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ---------------------------------------------------------------------------
// In-process counter store
// ---------------------------------------------------------------------------

// MemoryCounterStore is a process-local CounterStore with fixed windows.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	count   int64
	resetAt time.Time
}

// NewMemoryCounterStore creates an in-process counter store.
func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{windows: make(map[string]*window)}
}

// Incr increments the counter for key, starting a fresh window when the
// previous one has elapsed.
func (s *MemoryCounterStore) Incr(_ context.Context, key string, d time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	w, ok := s.windows[key]
	if !ok || now.After(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}
