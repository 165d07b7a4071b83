package water

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boatnav/internal/general/cache"
	"boatnav/internal/general/logger"
	"boatnav/internal/ports"
)

// Cache is the subset of cache.Redis the checker needs.
type Cache interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedChecker remembers verdicts by coordinate rounded to 5 decimals (~1 m).
// Only successful verdicts are cached; cache failures fall through to the wrapped checker.
type CachedChecker struct {
	next   ports.WaterChecker
	cache  Cache
	ttl    time.Duration
	logger *logger.Logger
}

var _ ports.WaterChecker = (*CachedChecker)(nil)

func NewCachedChecker(next ports.WaterChecker, c Cache, ttl time.Duration, logger *logger.Logger) *CachedChecker {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CachedChecker{next: next, cache: c, ttl: ttl, logger: logger}
}

// CacheKey is the Redis key of a coordinate.
func CacheKey(lat, lng float64) string {
	return fmt.Sprintf("boatnav:water:%.5f,%.5f", lat, lng)
}

func (checker *CachedChecker) IsWater(ctx context.Context, lat, lng float64) (bool, error) {
	key := CacheKey(lat, lng)

	var cached bool
	err := checker.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		return cached, nil
	case errors.Is(err, cache.ErrCorrupt):
		checker.logger.Warn(ctx, "water_cache_corrupt", "Evicting undecodable water verdict", err, map[string]any{"key": key})
		if err := checker.cache.Delete(ctx, key); err != nil {
			checker.logger.Warn(ctx, "water_cache_delete_failed", "Water verdict cache eviction failed", err, map[string]any{"key": key})
		}
	case !errors.Is(err, cache.ErrMiss):
		checker.logger.Warn(ctx, "water_cache_get_failed", "Water verdict cache lookup failed", err, map[string]any{"key": key})
	}

	water, err := checker.next.IsWater(ctx, lat, lng)
	if err != nil {
		return false, err
	}

	if err := checker.cache.Set(ctx, key, water, checker.ttl); err != nil {
		checker.logger.Warn(ctx, "water_cache_set_failed", "Water verdict cache store failed", err, map[string]any{"key": key})
	}
	return water, nil
}
