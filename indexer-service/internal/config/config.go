package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/weiawesome/cdc-search/indexer-service/internal/applier"
	"github.com/weiawesome/cdc-search/indexer-service/internal/source"
	"github.com/weiawesome/cdc-search/indexer-service/internal/supervisor"
	pkgconfig "github.com/weiawesome/cdc-search/pkg/config"
	"github.com/weiawesome/cdc-search/pkg/generation"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

type Config struct {
	Server        ServerConfig
	Kafka         source.Config
	Elasticsearch applier.Config
	Indexer       IndexerConfig
	Supervisor    supervisor.Config
	Redis         generation.RedisConfig
	Log           pkglog.Config
}

type ServerConfig struct {
	Host string
	Port int
}

type IndexerConfig struct {
	IDFields []string `mapstructure:"id_fields"`
}

// Load reads ./config/config.yaml (optional) and the environment.
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
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8081)
	v.SetDefault("kafka.driver", source.DriverConfluent)
	v.SetDefault("kafka.brokers", []string{"kafka:9092"})
	v.SetDefault("kafka.group_id", "opensearch-indexer")
	v.SetDefault("kafka.topics", []string{"cdc.dbo.profiles"})
	v.SetDefault("kafka.auto_offset_reset", "earliest")
	v.SetDefault("kafka.session_timeout", "30s")
	v.SetDefault("kafka.heartbeat_interval", "10s")
	v.SetDefault("kafka.max_poll_interval", "300s")
	v.SetDefault("kafka.poll_timeout", "5s")
	v.SetDefault("kafka.max_poll_records", 500)
	v.SetDefault("kafka.connect_timeout", "10s")
	v.SetDefault("elasticsearch.addresses", []string{"http://opensearch:9200"})
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.refresh", "")
	v.SetDefault("elasticsearch.request_timeout", "30s")
	v.SetDefault("indexer.id_fields", []string{"id", "Id"})
	v.SetDefault("supervisor.startup_attempts", 10)
	v.SetDefault("supervisor.startup_delay", "6s")
	v.SetDefault("supervisor.reconnect_delay", "5s")
	v.SetDefault("supervisor.stats_every", 1000)
	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 4)
	v.SetDefault("redis.read_timeout", "1s")
	v.SetDefault("redis.write_timeout", "1s")
	v.SetDefault("redis.prefix", "search")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.service_name", "indexer-service")

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("kafka.driver", "KAFKA_DRIVER")
	v.BindEnv("kafka.brokers", "KAFKA_BOOTSTRAP_SERVERS")
	v.BindEnv("kafka.group_id", "KAFKA_GROUP_ID")
	v.BindEnv("kafka.topics", "KAFKA_TOPICS")
	v.BindEnv("kafka.auto_offset_reset", "KAFKA_AUTO_OFFSET_RESET")
	v.BindEnv("elasticsearch.addresses", "ES_ADDRESSES", "OPENSEARCH_HOST")
	v.BindEnv("elasticsearch.username", "ES_USERNAME")
	v.BindEnv("elasticsearch.password", "ES_PASSWORD")
	v.BindEnv("elasticsearch.refresh", "ES_REFRESH")
	v.BindEnv("elasticsearch.request_timeout", "ES_REQUEST_TIMEOUT")
	v.BindEnv("indexer.id_fields", "INDEXER_ID_FIELDS")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Kafka.Brokers = pkgconfig.SplitList(cfg.Kafka.Brokers)
	cfg.Kafka.Topics = pkgconfig.SplitList(cfg.Kafka.Topics)
	cfg.Elasticsearch.Addresses = pkgconfig.SplitList(cfg.Elasticsearch.Addresses)
	cfg.Indexer.IDFields = pkgconfig.SplitList(cfg.Indexer.IDFields)
	cfg.Kafka.AutoOffsetReset = strings.ToLower(cfg.Kafka.AutoOffsetReset)
	cfg.Log.Pretty = strings.EqualFold(cfg.Log.Level, "debug")

	// The search cache generation is bumped right after a write returns, so
	// the write must already be visible to searches by then.
	if cfg.Elasticsearch.Refresh == "" && cfg.Redis.Enabled() {
		cfg.Elasticsearch.Refresh = "wait_for"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the indexer cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is empty"))
	}
	if len(c.Kafka.Topics) == 0 {
		errs = append(errs, errors.New("kafka.topics is empty"))
	}
	if c.Kafka.GroupID == "" {
		errs = append(errs, errors.New("kafka.group_id is empty"))
	}
	switch c.Kafka.AutoOffsetReset {
	case "earliest", "latest":
	default:
		errs = append(errs, fmt.Errorf("kafka.auto_offset_reset %q is not earliest or latest", c.Kafka.AutoOffsetReset))
	}
	switch c.Kafka.Driver {
	case source.DriverConfluent, source.DriverKafkaGo:
	default:
		errs = append(errs, fmt.Errorf("kafka.driver %q is not %s or %s", c.Kafka.Driver, source.DriverConfluent, source.DriverKafkaGo))
	}
	if c.Kafka.PollTimeout <= 0 {
		errs = append(errs, errors.New("kafka.poll_timeout must be positive"))
	}
	if c.Kafka.SessionTimeout <= 0 {
		errs = append(errs, errors.New("kafka.session_timeout must be positive"))
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		errs = append(errs, errors.New("elasticsearch.addresses is empty"))
	}
	if c.Elasticsearch.RequestTimeout <= 0 {
		errs = append(errs, errors.New("elasticsearch.request_timeout must be positive"))
	}
	if c.Supervisor.StartupAttempts <= 0 {
		errs = append(errs, errors.New("supervisor.startup_attempts must be positive"))
	}
	if c.Supervisor.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("supervisor.reconnect_delay must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
