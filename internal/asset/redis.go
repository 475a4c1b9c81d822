package asset

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"flightledger/internal/fingerprint"
	platformredis "flightledger/internal/platform/redis"
)

// DefaultCacheTTL bounds staleness for cached metadata. Records are
// effectively immutable after tokenization, so the TTL only bounds memory.
const DefaultCacheTTL = 15 * time.Minute

// RedisCache is a cache-aside decorator over a Store. Cache failures never
// fail the read; they fall through to the inner store.
type RedisCache struct {
	inner  Store
	client *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache wraps inner. A nil client disables caching transparently.
func NewRedisCache(inner Store, client *platformredis.Client, ttl time.Duration, logger *slog.Logger) Store {
	if client == nil {
		return inner
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{inner: inner, client: client, ttl: ttl, logger: logger}
}

func cacheKey(initial fingerprint.Digest) string {
	return "asset:meta:" + initial.String()
}

func (c *RedisCache) Save(ctx context.Context, meta Metadata) error {
	if err := c.inner.Save(ctx, meta); err != nil {
		return err
	}
	c.put(ctx, meta)
	return nil
}

func (c *RedisCache) Find(ctx context.Context, initial fingerprint.Digest) (Metadata, error) {
	raw, err := c.client.Get(ctx, cacheKey(initial)).Bytes()
	if err == nil {
		var meta Metadata
		if err := json.Unmarshal(raw, &meta); err == nil {
			return meta, nil
		}
		c.client.Del(ctx, cacheKey(initial))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("asset cache read failed", "error", err)
	}

	meta, err := c.inner.Find(ctx, initial)
	if err != nil {
		return Metadata{}, err
	}
	c.put(ctx, meta)
	return meta, nil
}

func (c *RedisCache) FindMany(ctx context.Context, initials []fingerprint.Digest) (map[fingerprint.Digest]Metadata, error) {
	out := make(map[fingerprint.Digest]Metadata, len(initials))
	var misses []fingerprint.Digest

	keys := make([]string, len(initials))
	for i, fp := range initials {
		keys[i] = cacheKey(fp)
	}
	if len(keys) > 0 {
		values, err := c.client.MGet(ctx, keys...).Result()
		if err != nil {
			c.logger.Warn("asset cache batch read failed", "error", err)
			return c.inner.FindMany(ctx, initials)
		}
		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				misses = append(misses, initials[i])
				continue
			}
			var meta Metadata
			if err := json.Unmarshal([]byte(raw), &meta); err != nil {
				misses = append(misses, initials[i])
				continue
			}
			out[initials[i]] = meta
		}
	}

	if len(misses) > 0 {
		fetched, err := c.inner.FindMany(ctx, misses)
		if err != nil {
			return nil, err
		}
		for fp, meta := range fetched {
			out[fp] = meta
			c.put(ctx, meta)
		}
	}
	return out, nil
}

func (c *RedisCache) put(ctx context.Context, meta Metadata) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKey(meta.Initial), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("asset cache write failed", "error", err)
	}
}
