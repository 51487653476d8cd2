package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"legaldocs-backend/internal/shared/metrics"
	"legaldocs-backend/internal/shared/telemetry"
)

// Category labels one class of cached payload. Each category carries its
// own TTL.
type Category string

const (
	CategoryAnalysis   Category = "analysis"
	CategoryDocument   Category = "document"
	CategoryComparison Category = "comparison"
	CategoryStatus     Category = "processing_status"
)

// Per-category TTLs. Status entries have no TTL: they are live state and
// get overwritten in place.
var ttls = map[Category]time.Duration{
	CategoryAnalysis:   24 * time.Hour,
	CategoryDocument:   12 * time.Hour,
	CategoryComparison: 6 * time.Hour,
	CategoryStatus:     0,
}

const subjectIndexPrefix = "subject:"

// Cache is a Redis-backed result cache. It is a performance optimization,
// not a correctness dependency: every Redis failure degrades to miss
// behavior and is logged, never surfaced to the pipeline.
type Cache struct {
	rdb *redis.Client
}

// New connects to Redis at the given URL.
func New(redisURL string) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &Cache{rdb: redis.NewClient(opts)}, nil
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{rdb: client}
}

// Key composes the structured cache key for a category and subject ids.
// Keys are built from explicit fields rather than matched by substring, so
// overlapping identifiers can never collide.
func Key(category Category, subjectIDs ...string) string {
	return string(category) + ":" + strings.Join(subjectIDs, ":")
}

// Get returns the cached payload, or ok=false on miss, expiry, or any
// Redis failure.
func (c *Cache) Get(ctx context.Context, category Category, subjectIDs ...string) ([]byte, bool) {
	key := Key(category, subjectIDs...)
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			telemetry.Warn("cache.get_failed", map[string]any{"key": key, "error": err.Error()})
		}
		metrics.CacheMisses.WithLabelValues(string(category)).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(string(category)).Inc()
	return val, true
}

// Set stores a payload under the category's TTL and indexes the key per
// subject id so invalidation can find it later. Failures are logged and
// swallowed.
func (c *Cache) Set(ctx context.Context, category Category, payload []byte, subjectIDs ...string) {
	key := Key(category, subjectIDs...)
	pipe := c.rdb.TxPipeline()
	if ttl := ttls[category]; ttl > 0 {
		pipe.Set(ctx, key, payload, ttl)
	} else {
		pipe.Set(ctx, key, payload, 0)
	}
	for _, id := range subjectIDs {
		pipe.SAdd(ctx, subjectIndexPrefix+id, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		telemetry.Warn("cache.set_failed", map[string]any{"key": key, "error": err.Error()})
	}
}

// InvalidateSubject removes every entry recorded for the subject id across
// all categories.
func (c *Cache) InvalidateSubject(ctx context.Context, subjectID string) {
	indexKey := subjectIndexPrefix + subjectID
	keys, err := c.rdb.SMembers(ctx, indexKey).Result()
	if err != nil {
		telemetry.Warn("cache.invalidate_failed", map[string]any{"subject_id": subjectID, "error": err.Error()})
		return
	}
	keys = append(keys, indexKey)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		telemetry.Warn("cache.invalidate_failed", map[string]any{"subject_id": subjectID, "error": err.Error()})
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}
