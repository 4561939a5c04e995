package service

import (
	"context"

	"github.com/weiawesome/cdc-search/search-service/internal/domain"
)

// SearchService defines the interface for search business logic.
type SearchService interface {
	Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error)
	Health(ctx context.Context) (*domain.Health, error)
}
