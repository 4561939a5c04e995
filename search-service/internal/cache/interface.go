package cache

import (
	"context"
	"time"

	"github.com/weiawesome/cdc-search/search-service/internal/domain"
)

// SearchCache defines the interface for caching search results.
type SearchCache interface {
	// BuildKey returns the key for one page of results. Keys embed the
	// index generation, so a change to the index yields new keys.
	BuildKey(ctx context.Context, req domain.SearchRequest) (string, error)
	Get(ctx context.Context, key string) (*domain.SearchResponse, error)
	Set(ctx context.Context, key string, result *domain.SearchResponse, ttl time.Duration) error
	Close() error
}
