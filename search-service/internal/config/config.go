package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	pkgconfig "github.com/weiawesome/cdc-search/pkg/config"
	"github.com/weiawesome/cdc-search/pkg/generation"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
	"github.com/weiawesome/cdc-search/search-service/internal/repository"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Elasticsearch repository.ClientConfig
	Search        SearchConfig
	Redis         generation.RedisConfig
	Cache         CacheConfig
	Log           pkglog.Config
}

type AppConfig struct {
	Env string
}

type ServerConfig struct {
	Host string
	Port int
}

type SearchConfig struct {
	DefaultIndex           string `mapstructure:"default_index"`
	repository.QueryConfig `mapstructure:",squash"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

func Load() (*Config, error) {
	return LoadFrom("./config")
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir string) (*Config, error) {
	v, err := pkgconfig.Load(dir, "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("app.env", "production")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("elasticsearch.addresses", []string{"http://opensearch:9200"})
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.max_retries", 3)
	v.SetDefault("search.default_index", "profiles")
	v.SetDefault("search.fields", []string{"name^2", "bio", "email", "tags"})
	v.SetDefault("search.highlight_fields", []string{"name", "bio"})
	v.SetDefault("search.fuzziness", "AUTO")
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.prefix", "search")
	v.SetDefault("cache.ttl", "30s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "search-service")

	// Bind environment variables
	v.BindEnv("app.env", "APP_ENV")
	v.BindEnv("server.port", "PORT")
	v.BindEnv("elasticsearch.addresses", "ES_ADDRESSES", "OPENSEARCH_HOST")
	v.BindEnv("elasticsearch.username", "ES_USERNAME")
	v.BindEnv("elasticsearch.password", "ES_PASSWORD")
	v.BindEnv("search.default_index", "SEARCH_DEFAULT_INDEX")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Elasticsearch.Addresses = pkgconfig.SplitList(cfg.Elasticsearch.Addresses)
	cfg.Search.Fields = pkgconfig.SplitList(cfg.Search.Fields)
	cfg.Search.HighlightFields = pkgconfig.SplitList(cfg.Search.HighlightFields)
	cfg.Log.Pretty = strings.EqualFold(cfg.Log.Level, "debug")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Elasticsearch.Addresses) == 0 {
		errs = append(errs, errors.New("elasticsearch.addresses is empty"))
	}
	if len(c.Search.Fields) == 0 {
		errs = append(errs, errors.New("search.fields is empty"))
	}
	if c.Search.DefaultIndex == "" {
		errs = append(errs, errors.New("search.default_index is empty"))
	}
	if c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
