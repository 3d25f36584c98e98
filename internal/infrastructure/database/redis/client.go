// Package redis wraps go-redis/v9 for the pieces of the pipeline that want a
// shared, process-external tier: the AO/NR memoization cache (internal/cache)
// and the per-material run lock (lock.go) the Pipeline Driver takes out
// before expanding a material, so two worker processes never race on the
// same material's tree/mirror state.
//
// Only standalone mode is wired — cmd/worker and cmd/retrosynth always talk
// to a single Redis instance (see RedisConfig in internal/config);
// sentinel and cluster topologies are not supported.
package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/internal/infrastructure/monitoring/logging"
	"github.com/meghavi-mstack/RetroSynthesisAgent-patent/pkg/errors"
)

var (
	// ErrClosed is returned by any command issued after Close.
	ErrClosed = errors.New(errors.CodeInternal, "redis client is closed")
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New(errors.CodeCacheError, "redis key not found")
)

// RedisConfig configures a standalone go-redis connection.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

func (cfg *RedisConfig) fillDefaults() {
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 20
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
}

// Client is a connection-checked *redis.Client that refuses commands once
// closed, rather than handing callers a client that silently queues onto a
// dead connection pool.
type Client struct {
	rdb *redis.Client

	mu     sync.RWMutex
	closed bool
}

// NewClient dials addr and blocks on a single PING before returning, so
// wiring failures surface at startup rather than on the first cache miss.
func NewClient(cfg *RedisConfig, log logging.Logger) (*Client, error) {
	cfg.fillDefaults()

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, errors.CodeDBConnectionError, "redis ping failed").WithDetail("addr=" + cfg.Addr)
	}

	log.Info("redis client connected", logging.String("addr", cfg.Addr), logging.Int("db", cfg.DB))
	return &Client{rdb: rdb}, nil
}

func (c *Client) guard() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close marks the client closed and releases the underlying pool. Safe to
// call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if err := c.guard(); err != nil {
		return "", err
	}
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	return v, err
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.guard(); err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}
	return c.rdb.Del(ctx, keys...).Result()
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.guard(); err != nil {
		return false, err
	}
	n, err := c.rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// SetNX is the building block MaterialLock uses to acquire a run lock: it
// only succeeds when key is absent, so two workers racing on the same
// material never both proceed.
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := c.guard(); err != nil {
		return false, err
	}
	return c.rdb.SetNX(ctx, key, value, ttl).Result()
}

// EvalDelIfMatch runs a compare-and-delete Lua script so a lock holder only
// releases the key it still owns, never a lock a dead peer's TTL already
// handed to someone else.
func (c *Client) EvalDelIfMatch(ctx context.Context, key, value string) (int64, error) {
	if err := c.guard(); err != nil {
		return 0, err
	}
	res, err := delIfMatchScript.Run(ctx, c.rdb, []string{key}, value).Result()
	if err != nil {
		return 0, err
	}
	n, _ := res.(int64)
	return n, nil
}

var delIfMatchScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)
