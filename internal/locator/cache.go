package locator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"scenekit/internal/models"
)

// Cache stores confirmed resolutions for the process lifetime.
// Implementations treat their own failures as misses.
type Cache interface {
	Get(ctx context.Context, key string) (models.ResolvedAsset, bool)
	Set(ctx context.Context, key string, value models.ResolvedAsset)
}

// MemoryCache is the default in-process cache.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]models.ResolvedAsset
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]models.ResolvedAsset{}}
}

func (c *MemoryCache) Get(_ context.Context, key string) (models.ResolvedAsset, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *MemoryCache) Set(_ context.Context, key string, value models.ResolvedAsset) {
	c.mu.Lock()
	c.entries[key] = value
	c.mu.Unlock()
}

const redisKeyPrefix = "scenekit:resolve:"

// RedisKV is the part of a go-redis client RedisCache needs.
type RedisKV interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
}

// RedisCache shares resolutions between processes serving one asset set.
// Entries carry no TTL.
type RedisCache struct {
	rdb    RedisKV
	prefix string
	logger *slog.Logger
}

// DialRedis parses a redis:// URL and checks the server answers.
func DialRedis(ctx context.Context, rawURL string) (*goredis.Client, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}
	opts, err := goredis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisCache(rdb RedisKV, logger *slog.Logger) *RedisCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisCache{rdb: rdb, prefix: redisKeyPrefix, logger: logger.With("component", "locator_cache")}
}

func (c *RedisCache) Get(ctx context.Context, key string) (models.ResolvedAsset, bool) {
	var zero models.ResolvedAsset
	if c == nil || c.rdb == nil {
		return zero, false
	}
	raw, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.logger.Warn("redis get failed", "key", key, "error", err)
		}
		return zero, false
	}
	var v models.ResolvedAsset
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("discarding malformed cache entry", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value models.ResolvedAsset) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, c.prefix+key, raw, 0).Err(); err != nil {
		c.logger.Warn("redis set failed", "key", key, "error", err)
	}
}
