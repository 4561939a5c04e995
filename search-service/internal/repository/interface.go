package repository

import (
	"context"
	"errors"

	"github.com/weiawesome/cdc-search/search-service/internal/domain"
)

var (
	// ErrUnavailable means the index store could not be reached or is
	// refusing requests.
	ErrUnavailable = errors.New("index store unavailable")
	// ErrIndexNotFound means the requested index does not exist.
	ErrIndexNotFound = errors.New("index not found")
)

// SearchRepository runs queries against the index store.
type SearchRepository interface {
	Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error)
	Health(ctx context.Context) (*domain.Health, error)
}
