package retriever

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nescampos/ainalyst/internal/logger"
	"github.com/nescampos/ainalyst/internal/metrics"
	"github.com/redis/go-redis/v9"
)

// Compile-time interface check.
var _ Gateway = (*CachedGateway)(nil)

const cacheKeyPrefix = "ainalyst:search:"

// CachedGateway memoizes Search results in Redis. Placeholder results are
// never stored, and any cache failure falls through to the wrapped gateway.
type CachedGateway struct {
	inner  Gateway
	rdb    redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

// NewCachedGateway wraps inner with a Redis-backed search cache.
func NewCachedGateway(inner Gateway, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedGateway {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &CachedGateway{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"retriever": inner.Name(), "component": "search_cache"}),
	}
}

// NewRedisClient opens a client for addr and verifies it with PING.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Name identifies the wrapped variant.
func (c *CachedGateway) Name() string { return c.inner.Name() }

// Search serves cached results when present.
func (c *CachedGateway) Search(ctx context.Context, query string) []SearchResult {
	key := c.key(query)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []SearchResult
		if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil && len(cached) > 0 {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return cached
		}
		metrics.CacheLookups.WithLabelValues("error").Inc()
	case errors.Is(err, redis.Nil):
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	default:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		c.logger.Warn("search cache read failed", map[string]interface{}{"error": err.Error()})
	}

	results := c.inner.Search(ctx, query)
	if IsPlaceholder(results) {
		return results
	}

	data, err := json.Marshal(results)
	if err != nil {
		return results
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("search cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return results
}

// ScrapeContent is not cached.
func (c *CachedGateway) ScrapeContent(ctx context.Context, rawURL string) string {
	return c.inner.ScrapeContent(ctx, rawURL)
}

func (c *CachedGateway) key(query string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("%s%s:%x", cacheKeyPrefix, c.inner.Name(), sum[:12])
}
