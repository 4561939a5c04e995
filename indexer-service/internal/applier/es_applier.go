package applier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/goccy/go-json"

	"github.com/weiawesome/cdc-search/indexer-service/internal/domain"
)

// Config holds the index store connection settings.
type Config struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	// Refresh is passed through to write requests ("", "true", "false", "wait_for").
	Refresh string `mapstructure:"refresh"`
	// RequestTimeout bounds one write, including a hung connection.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DefaultRequestTimeout is used when Config.RequestTimeout is not set.
const DefaultRequestTimeout = 30 * time.Second

// NewClient builds an Elasticsearch/OpenSearch client for the indexer.
// Transport-level retries are disabled: a failed write must surface to the
// run loop so the offset is withheld.
func NewClient(cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:           cfg.Addresses,
		Username:            cfg.Username,
		Password:            cfg.Password,
		DisableRetry:        true,
		CompressRequestBody: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return client, nil
}

// ESApplier applies actions through the Elasticsearch document APIs.
type ESApplier struct {
	client  *elasticsearch.Client
	refresh string
	timeout time.Duration
}

// NewESApplier creates a new Elasticsearch-backed applier.
func NewESApplier(client *elasticsearch.Client, cfg Config) *ESApplier {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &ESApplier{client: client, refresh: cfg.Refresh, timeout: timeout}
}

// Apply performs the action. Skip actions never reach the store.
// Each store call is bounded by the request timeout even when ctx is never
// cancelled; a timed out call is an *ApplyError like any other failure.
func (a *ESApplier) Apply(ctx context.Context, action domain.IndexAction) error {
	if action.Kind == domain.ActionSkip {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	switch action.Kind {
	case domain.ActionUpsert:
		return a.upsert(ctx, action)
	case domain.ActionDelete:
		return a.delete(ctx, action)
	default:
		return nil
	}
}

func (a *ESApplier) upsert(ctx context.Context, action domain.IndexAction) error {
	data, err := json.Marshal(action.Body)
	if err != nil {
		return &ApplyError{Kind: action.Kind, Index: action.Index, ID: action.ID, Err: fmt.Errorf("failed to marshal document: %w", err)}
	}

	opts := []func(*esapi.IndexRequest){
		a.client.Index.WithContext(ctx),
		a.client.Index.WithDocumentID(action.ID),
	}
	if a.refresh != "" {
		opts = append(opts, a.client.Index.WithRefresh(a.refresh))
	}

	res, err := a.client.Index(action.Index, bytes.NewReader(data), opts...)
	if err != nil {
		return &ApplyError{Kind: action.Kind, Index: action.Index, ID: action.ID, Err: err}
	}
	defer drain(res.Body)

	if res.IsError() {
		return &ApplyError{Kind: action.Kind, Index: action.Index, ID: action.ID, Status: res.StatusCode, Err: errors.New(res.String())}
	}
	return nil
}

func (a *ESApplier) delete(ctx context.Context, action domain.IndexAction) error {
	opts := []func(*esapi.DeleteRequest){
		a.client.Delete.WithContext(ctx),
	}
	if a.refresh != "" {
		opts = append(opts, a.client.Delete.WithRefresh(a.refresh))
	}

	res, err := a.client.Delete(action.Index, action.ID, opts...)
	if err != nil {
		return &ApplyError{Kind: action.Kind, Index: action.Index, ID: action.ID, Err: err}
	}
	defer drain(res.Body)

	// Document (or whole index) already gone: the delete has nothing left to do.
	if res.StatusCode == http.StatusNotFound {
		return nil
	}
	if res.IsError() {
		return &ApplyError{Kind: action.Kind, Index: action.Index, ID: action.ID, Status: res.StatusCode, Err: errors.New(res.String())}
	}
	return nil
}

// Ping checks that the store answers the Info API.
func (a *ESApplier) Ping(ctx context.Context) error {
	res, err := a.client.Info(a.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reach elasticsearch: %w", err)
	}
	defer drain(res.Body)

	if res.IsError() {
		return fmt.Errorf("elasticsearch error: %s", res.String())
	}
	return nil
}

func drain(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
