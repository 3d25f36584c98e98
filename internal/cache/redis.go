package cache

import (
	"context"
	"time"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/database/redis"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

// RedisStore adapts redis.Cache into a flat Store for deployments where the
// Expansion Controller's worker pool runs several concurrent
// document workers that should share one AO/NR memoization tier instead of
// each holding a private JSON file.
type RedisStore struct {
	cache  redis.Cache
	prefix string
}

// NewRedisStore wraps an already-constructed redis.Cache. prefix namespaces
// keys so AO and NR can share one Redis instance without collisions.
func NewRedisStore(c redis.Cache, prefix string) *RedisStore {
	return &RedisStore{cache: c, prefix: prefix}
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, found, err := s.cache.Get(ctx, s.prefix+key)
	if err != nil {
		return "", false, errors.Wrap(err, errors.CodeCacheError, "cache get").WithDetail("key=" + key)
	}
	return value, found, nil
}

// noExpiry is used instead of a zero TTL because redis.Cache.Set treats
// ttl == 0 as "use the default" in some backends. These caches are
// durable memoization state, not short-lived entries, so entries are
// written with an effectively unbounded lifetime instead.
const noExpiry = 100 * 365 * 24 * time.Hour

func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.cache.Set(ctx, s.prefix+key, value, noExpiry); err != nil {
		return errors.Wrap(err, errors.CodeCacheError, "cache set").WithDetail("key=" + key)
	}
	return nil
}

func (s *RedisStore) Close() error { return nil }
