// Package generation keeps a per-index change counter in Redis.
//
// The indexer bumps an index's generation after every applied change and
// readers fold the current generation into their cache keys, so cached
// results from before a change are simply never looked up again.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Prefix       string        `mapstructure:"prefix"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Address != ""
}

// Counter is the subset of the Redis client the store needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
}

// Store reads and bumps index generations.
type Store struct {
	client Counter
	prefix string
	close  func() error
}

// NewRedisClient creates a Redis client and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedis connects to Redis and returns a Store owning the client.
func NewRedis(ctx context.Context, cfg RedisConfig) (*Store, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := New(client, cfg.Prefix)
	s.close = client.Close
	return s, nil
}

// New wraps an existing client. The caller keeps ownership of it.
func New(client Counter, prefix string) *Store {
	if prefix == "" {
		prefix = "search"
	}
	return &Store{client: client, prefix: prefix}
}

// Key returns the Redis key holding index's generation.
func (s *Store) Key(index string) string {
	return fmt.Sprintf("%s:gen:%s", s.prefix, index)
}

// Bump increments index's generation and returns the new value.
func (s *Store) Bump(ctx context.Context, index string) (int64, error) {
	n, err := s.client.Incr(ctx, s.Key(index)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to bump generation of %s: %w", index, err)
	}
	return n, nil
}

// Current returns index's generation; an index never bumped is at 0.
func (s *Store) Current(ctx context.Context, index string) (int64, error) {
	raw, err := s.client.Get(ctx, s.Key(index)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read generation of %s: %w", index, err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid generation %q for %s: %w", raw, index, err)
	}
	return n, nil
}

// Close releases the client if the store owns it.
func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
