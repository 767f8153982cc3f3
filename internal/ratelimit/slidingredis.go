package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter is a sliding window limiter over Redis sorted sets, so the limit
// is shared by every replica. Rejected attempts are not recorded and do not
// extend the window.
type Limiter struct {
	Client *redis.Client
	Prefix string

	now func() time.Time
}

func (l Limiter) clock() time.Time {
	if l.now != nil {
		return l.now()
	}
	return time.Now()
}

// Allow implements Allower.
func (l Limiter) Allow(ctx context.Context, key string, window time.Duration, limit int) (bool, int, time.Time, error) {
	now := l.clock()
	if l.Client == nil || limit <= 0 || window <= 0 {
		return true, limit, now.Add(window), nil
	}

	redisKey := l.Prefix + key
	member := uuid.NewString()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)

	pipe := l.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", "("+cutoff)
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: member})
	count := pipe.ZCard(ctx, redisKey)
	oldest := pipe.ZRangeWithScores(ctx, redisKey, 0, 0)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, now.Add(window), err
	}

	reset := now.Add(window)
	if first := oldest.Val(); len(first) > 0 {
		reset = time.Unix(0, int64(first[0].Score)).Add(window)
	}

	current := int(count.Val())
	if current > limit {
		if err := l.Client.ZRem(ctx, redisKey, member).Err(); err != nil {
			return false, 0, reset, err
		}
		return false, 0, reset, nil
	}
	return true, limit - current, reset, nil
}
