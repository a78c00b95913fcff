package github

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/skillxpress/skillxpress/internal/logger"
)

// LanguageCache stores language breakdowns keyed by languages URL.
// Implementations must treat failures as misses.
type LanguageCache interface {
	Get(ctx context.Context, key string) (map[string]int64, bool)
	Set(ctx context.Context, key string, langs map[string]int64)
}

// RedisCache is a LanguageCache backed by Redis.
type RedisCache struct {
	rdb *goredis.Client
	ttl time.Duration
	log *logger.Logger
}

// NewRedisCache connects to redisURL and verifies the connection.
func NewRedisCache(ctx context.Context, redisURL string, ttl time.Duration, log *logger.Logger) (*RedisCache, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisCache{rdb: rdb, ttl: ttl, log: log.With("service", "LanguageCache")}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (map[string]int64, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("language cache read failed", "error", err)
		}
		return nil, false
	}
	var langs map[string]int64
	if err := json.Unmarshal(raw, &langs); err != nil {
		return nil, false
	}
	return langs, true
}

func (c *RedisCache) Set(ctx context.Context, key string, langs map[string]int64) {
	raw, err := json.Marshal(langs)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(key), raw, c.ttl).Err(); err != nil {
		c.log.Warn("language cache write failed", "error", err)
	}
}

// Close releases the Redis connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

func cacheKey(languagesURL string) string {
	sum := sha256.Sum256([]byte(languagesURL))
	return "skillxpress:languages:" + hex.EncodeToString(sum[:16])
}
