package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiawesome/cdc-search/indexer-service/internal/applier"
	"github.com/weiawesome/cdc-search/indexer-service/internal/config"
	"github.com/weiawesome/cdc-search/indexer-service/internal/invalidator"
	"github.com/weiawesome/cdc-search/indexer-service/internal/retry"
	"github.com/weiawesome/cdc-search/indexer-service/internal/source"
	"github.com/weiawesome/cdc-search/indexer-service/internal/supervisor"
	"github.com/weiawesome/cdc-search/indexer-service/internal/transform"
	"github.com/weiawesome/cdc-search/pkg/generation"
	pkglog "github.com/weiawesome/cdc-search/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize index store client
	esClient, err := applier.NewClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
	}
	esApplier := applier.NewESApplier(esClient, cfg.Elasticsearch)

	// Verify store connection
	storePolicy := retry.Bounded(cfg.Supervisor.StartupAttempts, cfg.Supervisor.StartupDelay)
	if err := retry.Do(ctx, "elasticsearch ping", storePolicy, func(int) error {
		return esApplier.Ping(ctx)
	}); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("stopped before elasticsearch was reachable")
			return
		}
		logger.Fatal().Err(err).Msg("failed to connect to elasticsearch")
	}
	logger.Info().Strs("addresses", cfg.Elasticsearch.Addresses).Msg("elasticsearch connected")

	// Initialize broker connector
	connector, err := source.NewConnector(cfg.Kafka)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create kafka connector")
	}

	opts := []supervisor.Option{}
	if cfg.Redis.Enabled() {
		gen, err := generation.NewRedis(ctx, cfg.Redis)
		if err != nil {
			// The cache only serves reads; indexing goes on without it.
			logger.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("cache invalidation disabled")
		} else {
			defer gen.Close()
			opts = append(opts, supervisor.WithInvalidator(invalidator.New(gen, cfg.Redis.WriteTimeout)))
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected, cache invalidation enabled")
		}
	}

	sup := supervisor.New(cfg.Supervisor, connector, transform.New(cfg.Indexer.IDFields), esApplier, opts...)

	// Start operational HTTP server
	mux := http.NewServeMux()
	mux.Handle("/health", sup.HealthHandler())
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      pkglog.HTTPMiddleware(logger)(mux),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("health server error")
		}
	}()

	logger.Info().
		Str("driver", cfg.Kafka.Driver).
		Strs("brokers", cfg.Kafka.Brokers).
		Strs("topics", cfg.Kafka.Topics).
		Str("group", cfg.Kafka.GroupID).
		Msg("indexer-service starting")

	runErr := sup.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("health server shutdown")
	}

	if runErr != nil {
		logger.Error().Err(runErr).Msg("indexer-service failed")
		stop()
		os.Exit(1)
	}
	logger.Info().Msg("indexer-service stopped")
}
