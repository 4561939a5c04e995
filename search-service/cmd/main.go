package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	pkglog "github.com/weiawesome/cdc-search/pkg/log"
	"github.com/weiawesome/cdc-search/search-service/internal/cache"
	"github.com/weiawesome/cdc-search/search-service/internal/config"
	"github.com/weiawesome/cdc-search/search-service/internal/handler"
	"github.com/weiawesome/cdc-search/search-service/internal/repository"
	"github.com/weiawesome/cdc-search/search-service/internal/service"
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

	// Initialize Elasticsearch client
	esClient, err := repository.NewClient(cfg.Elasticsearch)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
	}

	// The store may come up after us; /health reports it until then.
	if res, err := esClient.Info(esClient.Info.WithContext(ctx)); err != nil {
		logger.Warn().Err(err).Msg("elasticsearch not reachable yet")
	} else {
		res.Body.Close()
		logger.Info().Strs("addresses", cfg.Elasticsearch.Addresses).Msg("elasticsearch connected")
	}

	// Initialize repository
	searchRepo := repository.NewESSearchRepository(esClient, cfg.Search.QueryConfig)

	// Initialize Redis cache
	var searchCache cache.SearchCache
	if cfg.Redis.Enabled() {
		redisCache, err := cache.NewRedisSearchCache(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unavailable, caching disabled")
		} else {
			defer redisCache.Close()
			searchCache = redisCache
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
		}
	}

	// Initialize service
	searchService := service.NewSearchService(searchRepo, searchCache, service.Options{
		DefaultIndex: cfg.Search.DefaultIndex,
		Env:          cfg.App.Env,
		CacheTTL:     cfg.Cache.TTL,
	})

	// Initialize HTTP handler
	httpHandler := handler.NewHandler(searchService)

	// Setup Gin router
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	// Register routes
	httpHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Str("env", cfg.App.Env).Msg("search-service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down search-service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("server shutdown")
	}

	logger.Info().Msg("search-service stopped")
}
