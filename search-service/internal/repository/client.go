package repository

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
)

// ClientConfig holds the index store connection settings.
type ClientConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	MaxRetries int      `mapstructure:"max_retries"`
}

// NewClient builds a compressed, retrying client for read traffic.
func NewClient(cfg ClientConfig) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:           cfg.Addresses,
		Username:            cfg.Username,
		Password:            cfg.Password,
		MaxRetries:          cfg.MaxRetries,
		CompressRequestBody: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return client, nil
}
