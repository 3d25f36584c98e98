package redis

import (
	"context"
	"time"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
)

// ErrCacheMiss aliases ErrNotFound, the error Client.Get returns for an
// absent key. Cache.Get does not return it: a miss there is reported as
// found == false with a nil error.
var ErrCacheMiss = ErrNotFound

// Cache is the subset of Redis commands internal/cache.RedisStore needs to
// back the Availability Oracle and Name Resolver memoization tiers with a
// process-external store shared across worker replicas.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// redisCache is a thin namespacing layer over Client: every key is prefixed
// so AO and NR entries (and any future cache) can share one Redis instance
// without colliding.
type redisCache struct {
	client *Client
	log    logging.Logger
	prefix string
}

// NewRedisCache wraps client, prefixing every key with "retrosynth:".
func NewRedisCache(client *Client, log logging.Logger) Cache {
	return &redisCache{client: client, log: log, prefix: "retrosynth:"}
}

func (c *redisCache) key(k string) string { return c.prefix + k }

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.client.Get(ctx, c.key(key))
	if err == ErrNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl)
}

func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.key(k)
	}
	_, err := c.client.Del(ctx, full...)
	return err
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	return c.client.Exists(ctx, c.key(key))
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}
