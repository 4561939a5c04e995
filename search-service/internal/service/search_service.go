package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/cdc-search/pkg/log"
	"github.com/weiawesome/cdc-search/search-service/internal/cache"
	"github.com/weiawesome/cdc-search/search-service/internal/domain"
	"github.com/weiawesome/cdc-search/search-service/internal/repository"
)

const (
	defaultSize = 10
	maxSize     = 100
)

// Options holds the service-level settings.
type Options struct {
	DefaultIndex string
	Env          string
	CacheTTL     time.Duration
}

type searchServiceImpl struct {
	repo  repository.SearchRepository
	cache cache.SearchCache
	opts  Options
	sf    singleflight.Group
}

// NewSearchService creates a new search service. searchCache may be nil,
// in which case every request goes to the index store.
func NewSearchService(repo repository.SearchRepository, searchCache cache.SearchCache, opts Options) SearchService {
	if opts.DefaultIndex == "" {
		opts.DefaultIndex = "profiles"
	}
	return &searchServiceImpl{
		repo:  repo,
		cache: searchCache,
		opts:  opts,
	}
}

func (s *searchServiceImpl) Search(ctx context.Context, req *domain.SearchRequest) (*domain.SearchResponse, error) {
	s.normalizeRequest(req)
	q := *req

	flightKey := fmt.Sprintf("%s|%d|%d|%s", q.Index, q.From, q.Size, q.Query)
	cacheKey := ""
	if s.cache != nil {
		key, err := s.cache.BuildKey(ctx, q)
		if err != nil {
			l := log.Ctx(ctx)
			l.Warn().Err(err).Msg("cache key error, bypassing cache")
		} else {
			cacheKey = key
			flightKey = key
		}
	}

	result, err, _ := s.sf.Do(flightKey, func() (interface{}, error) {
		if cacheKey != "" {
			cached, err := s.cache.Get(ctx, cacheKey)
			if err == nil {
				return cached, nil
			}
			if !errors.Is(err, cache.ErrCacheMiss) {
				l := log.Ctx(ctx)
				l.Warn().Err(err).Msg("cache get error")
			}
		}

		resp, err := s.repo.Search(ctx, q)
		if err != nil {
			return nil, err
		}

		if cacheKey != "" {
			s.asyncCacheSet(cacheKey, resp)
		}

		return resp, nil
	})

	if err != nil {
		return nil, err
	}

	return result.(*domain.SearchResponse), nil
}

func (s *searchServiceImpl) Health(ctx context.Context) (*domain.Health, error) {
	h, err := s.repo.Health(ctx)
	if err != nil {
		return nil, err
	}
	h.Env = s.opts.Env
	return h, nil
}

func (s *searchServiceImpl) normalizeRequest(req *domain.SearchRequest) {
	req.Index = strings.TrimSpace(req.Index)
	if req.Index == "" {
		req.Index = s.opts.DefaultIndex
	}
	if req.Size <= 0 {
		req.Size = defaultSize
	}
	if req.Size > maxSize {
		req.Size = maxSize
	}
	if req.From < 0 {
		req.From = 0
	}
}

func (s *searchServiceImpl) asyncCacheSet(key string, resp *domain.SearchResponse) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := s.cache.Set(ctx, key, resp, s.opts.CacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Str("key", key).Msg("cache set error")
		}
	}()
}
