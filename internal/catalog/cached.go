package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Finder groups the three lookups served by a catalog store.
type Finder interface {
	ProductFinder
	CouponFinder
	TaxFinder
}

// RefillLocker serialises cache refills for a key across instances.
type RefillLocker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

const refillLockTTL = 2 * time.Second

// CachedFinder is a read-through cache in front of a Finder. Misses and
// store errors are never cached, and cache failures fall back to the store.
// With Lock set, concurrent misses on one key wait for a single refill.
type CachedFinder struct {
	Next  Finder
	Cache *Cache
	Lock  RefillLocker
}

// FindByID implements ProductFinder.
func (f CachedFinder) FindByID(ctx context.Context, id int64) (Product, error) {
	return readThrough(ctx, f, cacheKeyspace+"product:"+strconv.FormatInt(id, 10), func() (Product, error) {
		return f.Next.FindByID(ctx, id)
	})
}

// FindByCode implements CouponFinder.
func (f CachedFinder) FindByCode(ctx context.Context, code string) (Coupon, error) {
	return readThrough(ctx, f, cacheKeyspace+"coupon:"+code, func() (Coupon, error) {
		return f.Next.FindByCode(ctx, code)
	})
}

// FindByCountryCode implements TaxFinder.
func (f CachedFinder) FindByCountryCode(ctx context.Context, countryCode string) (Tax, error) {
	return readThrough(ctx, f, cacheKeyspace+"tax:"+countryCode, func() (Tax, error) {
		return f.Next.FindByCountryCode(ctx, countryCode)
	})
}

func readThrough[T any](ctx context.Context, f CachedFinder, key string, load func() (T, error)) (T, error) {
	if value, ok := cacheGet[T](ctx, f.Cache, key); ok {
		return value, nil
	}
	if f.Lock == nil {
		return loadAndStore(ctx, f.Cache, key, load)
	}

	var (
		value   T
		loadErr error
	)
	err := f.Lock.WithLock(ctx, key, refillLockTTL, func(ctx context.Context) error {
		// another holder may have refilled while we waited
		if cached, ok := cacheGet[T](ctx, f.Cache, key); ok {
			value = cached
			return nil
		}
		value, loadErr = loadAndStore(ctx, f.Cache, key, load)
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog refill lock")
		return loadAndStore(ctx, f.Cache, key, load)
	}
	return value, loadErr
}

func cacheGet[T any](ctx context.Context, cache *Cache, key string) (T, bool) {
	var cached T
	hit, err := cache.GetJSON(ctx, key, &cached)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache read")
		return cached, false
	}
	return cached, hit
}

func loadAndStore[T any](ctx context.Context, cache *Cache, key string, load func() (T, error)) (T, error) {
	value, err := load()
	if err != nil {
		return value, err
	}
	if err := cache.SetJSON(ctx, key, value); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("catalog cache write")
	}
	return value, nil
}
