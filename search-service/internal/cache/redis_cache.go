package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/weiawesome/cdc-search/pkg/generation"
	"github.com/weiawesome/cdc-search/search-service/internal/domain"
)

var ErrCacheMiss = errors.New("cache miss")

// KV is the subset of the Redis client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// GenerationReader returns the current generation of an index.
type GenerationReader interface {
	Current(ctx context.Context, index string) (int64, error)
}

type RedisSearchCache struct {
	client KV
	gen    GenerationReader
	prefix string
	close  func() error
}

// NewRedisSearchCache connects to Redis and creates a search cache whose
// keys follow the generations the indexer bumps.
func NewRedisSearchCache(ctx context.Context, cfg generation.RedisConfig) (*RedisSearchCache, error) {
	client, err := generation.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	c := New(client, generation.New(client, cfg.Prefix), cfg.Prefix)
	c.close = client.Close
	return c, nil
}

// New builds a cache on an existing client.
func New(client KV, gen GenerationReader, prefix string) *RedisSearchCache {
	if prefix == "" {
		prefix = "search"
	}
	return &RedisSearchCache{
		client: client,
		gen:    gen,
		prefix: prefix,
	}
}

// BuildKey creates a cache key from search parameters and the index generation.
func (c *RedisSearchCache) BuildKey(ctx context.Context, req domain.SearchRequest) (string, error) {
	gen, err := c.gen.Current(ctx, req.Index)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:q:%s:%d:%d:%d:%s", c.prefix, req.Index, gen, req.From, req.Size, req.Query), nil
}

func (c *RedisSearchCache) Get(ctx context.Context, key string) (*domain.SearchResponse, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result domain.SearchResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisSearchCache) Set(ctx context.Context, key string, result *domain.SearchResponse, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisSearchCache) Close() error {
	if c.close == nil {
		return nil
	}
	return c.close()
}
