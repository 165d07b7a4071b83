package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"boatnav/internal/general/logger"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned by Get when the key is absent or the cache is disabled.
	ErrMiss = errors.New("cache miss")
	// ErrCorrupt is returned by Get when the stored value does not decode into dest.
	ErrCorrupt = errors.New("cache entry corrupt")
)

// Redis is a JSON value cache. A Redis that failed to connect stays usable and
// reports every lookup as a miss.
type Redis struct {
	client  *redis.Client
	enabled bool
}

// Options selects the Redis server; an empty Addr disables caching.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewRedis connects and pings once. Failures disable the cache instead of failing the caller.
func NewRedis(ctx context.Context, opts Options, log *logger.Logger) *Redis {
	if opts.Addr == "" {
		log.Info(ctx, "cache_disabled", "Redis address not provided, caching disabled", nil)
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn(ctx, "cache_disabled", "Failed to connect to Redis, caching disabled", err, map[string]any{"addr": opts.Addr})
		_ = client.Close()
		return &Redis{}
	}

	log.Info(ctx, "cache_connected", "Redis cache initialized successfully", map[string]any{"addr": opts.Addr})
	return &Redis{client: client, enabled: true}
}

// Enabled reports whether lookups reach Redis.
func (r *Redis) Enabled() bool {
	return r != nil && r.enabled
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}

// Set stores value as JSON with expiration.
func (r *Redis) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if !r.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, data, expiration).Err()
}

// Get decodes the cached JSON value into dest.
func (r *Redis) Get(ctx context.Context, key string, dest any) error {
	if !r.Enabled() {
		return ErrMiss
	}

	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrCorrupt, key, err)
	}
	return nil
}

// Delete removes a key from cache.
func (r *Redis) Delete(ctx context.Context, key string) error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Del(ctx, key).Err()
}
