// Package lock implements a small Redis mutex used to collapse concurrent
// catalog cache refills into a single store read.
package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotConfigured is returned when the Locker has no Redis client.
	ErrNotConfigured = errors.New("lock: redis client not configured")
	// ErrNoCallback is returned when WithLock is called with a nil fn.
	ErrNoCallback = errors.New("lock: callback not provided")
)

const (
	defaultTTL   = 5 * time.Second
	defaultRetry = 25 * time.Millisecond
	keyPrefix    = "lock:"
)

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

// Locker provides a Redis-backed distributed lock.
type Locker struct {
	R            *redis.Client
	RetryBackoff time.Duration
}

// WithLock runs fn while holding the lock named key. The lock is released
// when fn returns, and expires after ttl if the holder dies. Waiting stops
// when ctx is done.
func (l Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error {
	if l.R == nil {
		return ErrNotConfigured
	}
	if fn == nil {
		return ErrNoCallback
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	retry := l.RetryBackoff
	if retry <= 0 {
		retry = defaultRetry
	}
	name := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.R.SetNX(ctx, name, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			defer l.release(context.WithoutCancel(ctx), name, token)
			return fn(ctx)
		}
		timer := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l Locker) release(ctx context.Context, name, token string) {
	if err := l.R.Eval(ctx, releaseScript, []string{name}, token).Err(); err != nil {
		// scripting disabled
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, name).Err()
		}
	}
}
