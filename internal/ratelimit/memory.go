package ratelimit

import (
	"context"
	"time"

	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// MemoryLimiter is a fixed window limiter kept in process memory. It is used
// when no Redis is configured, so limits apply per replica.
type MemoryLimiter struct {
	store limiter.Store
}

// NewMemoryLimiter returns a limiter backed by ulule's in-memory store.
func NewMemoryLimiter(prefix string) MemoryLimiter {
	return MemoryLimiter{store: memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          prefix,
		CleanUpInterval: time.Minute,
	})}
}

// Allow implements Allower.
func (m MemoryLimiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (bool, int, time.Time, error) {
	if m.store == nil || limit <= 0 || window <= 0 {
		return true, limit, time.Now().Add(window), nil
	}
	lc, err := limiter.New(m.store, limiter.Rate{Period: window, Limit: int64(limit)}).Get(ctx, key)
	if err != nil {
		return false, 0, time.Now().Add(window), err
	}
	return !lc.Reached, int(lc.Remaining), time.Unix(lc.Reset, 0), nil
}
