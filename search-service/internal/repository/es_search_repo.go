package repository

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"

	"github.com/weiawesome/cdc-search/search-service/internal/domain"
)

// QueryConfig shapes the full-text query.
type QueryConfig struct {
	Fields          []string `mapstructure:"fields"`
	HighlightFields []string `mapstructure:"highlight_fields"`
	Fuzziness       string   `mapstructure:"fuzziness"`
}

type esSearchRepository struct {
	client *elasticsearch.Client
	query  QueryConfig
}

// NewESSearchRepository creates a new Elasticsearch-based search repository.
func NewESSearchRepository(client *elasticsearch.Client, query QueryConfig) SearchRepository {
	if query.Fuzziness == "" {
		query.Fuzziness = "AUTO"
	}
	return &esSearchRepository{
		client: client,
		query:  query,
	}
}

func (r *esSearchRepository) searchBody(req domain.SearchRequest) map[string]interface{} {
	highlight := make(map[string]interface{}, len(r.query.HighlightFields))
	for _, f := range r.query.HighlightFields {
		highlight[f] = map[string]interface{}{}
	}

	body := map[string]interface{}{
		"from": req.From,
		"size": req.Size,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     req.Query,
				"fields":    r.query.Fields,
				"fuzziness": r.query.Fuzziness,
			},
		},
	}
	if len(highlight) > 0 {
		body["highlight"] = map[string]interface{}{"fields": highlight}
	}
	return body
}

func (r *esSearchRepository) Search(ctx context.Context, req domain.SearchRequest) (*domain.SearchResponse, error) {
	data, err := json.Marshal(r.searchBody(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(req.Index),
		r.client.Search.WithBody(bytes.NewReader(data)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer res.Body.Close()

	if err := responseError(res); err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", req.Index, err)
	}

	var result esResponse
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	hits := result.Hits.Hits
	if hits == nil {
		hits = []domain.Hit{}
	}
	return &domain.SearchResponse{
		Total: result.Hits.Total.Value,
		From:  req.From,
		Size:  req.Size,
		Query: req.Query,
		Hits:  hits,
	}, nil
}

// Health asks for node info and cluster health in parallel.
func (r *esSearchRepository) Health(ctx context.Context) (*domain.Health, error) {
	var info esInfo
	var cluster esClusterHealth

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := r.client.Info(r.client.Info.WithContext(gCtx))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		defer res.Body.Close()
		if err := responseError(res); err != nil {
			return err
		}
		return json.NewDecoder(res.Body).Decode(&info)
	})

	g.Go(func() error {
		res, err := r.client.Cluster.Health(r.client.Cluster.Health.WithContext(gCtx))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		defer res.Body.Close()
		if err := responseError(res); err != nil {
			return err
		}
		return json.NewDecoder(res.Body).Decode(&cluster)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.Health{
		Status:        "ok",
		Version:       info.Version.Number,
		ClusterStatus: cluster.Status,
		ClusterName:   cluster.ClusterName,
	}, nil
}

// responseError classifies a non-2xx store response.
func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	switch res.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", ErrUnavailable, res.String())
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrIndexNotFound, res.String())
	default:
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
}

// esResponse is the subset of the search response the service returns.
type esResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []domain.Hit `json:"hits"`
	} `json:"hits"`
}

type esInfo struct {
	Version struct {
		Number string `json:"number"`
	} `json:"version"`
}

type esClusterHealth struct {
	ClusterName string `json:"cluster_name"`
	Status      string `json:"status"`
}
