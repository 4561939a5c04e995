package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiawesome/cdc-search/pkg/log"
	"github.com/weiawesome/cdc-search/pkg/response"
	"github.com/weiawesome/cdc-search/search-service/internal/domain"
	"github.com/weiawesome/cdc-search/search-service/internal/repository"
	"github.com/weiawesome/cdc-search/search-service/internal/service"
)

const version = "1.0.0"

// Handler handles HTTP requests for search service.
type Handler struct {
	searchService service.SearchService
}

// NewHandler creates a new HTTP handler.
func NewHandler(searchService service.SearchService) *Handler {
	return &Handler{
		searchService: searchService,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)
	r.GET("/search", h.Search)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Root describes the service.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Search API",
		"version": version,
		"health":  "/health",
		"search":  "/search",
		"metrics": "/metrics",
	})
}

// Health reports index store reachability and cluster state.
func (h *Handler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	health, err := h.searchService.Health(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrUnavailable) {
			l.Error().Err(err).Msg("index store unreachable")
			response.ServiceUnavailable(c, "index store is unreachable")
			return
		}
		l.Error().Err(err).Msg("health check failed")
		response.ServiceUnavailable(c, err.Error())
		return
	}

	c.JSON(http.StatusOK, health)
}

// Search runs a fuzzy full-text query over one index.
func (h *Handler) Search(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	if _, ok := c.GetQuery("q"); !ok {
		l.Warn().Msg("invalid search request: missing q")
		response.BadRequest(c, "query parameter q is required")
		return
	}

	var req domain.SearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		l.Warn().Err(err).Msg("invalid search request")
		response.BadRequest(c, err.Error())
		return
	}

	start := time.Now()
	result, err := h.searchService.Search(ctx, &req)
	if err != nil {
		requestsCounter.WithLabelValues("error").Inc()
		errorsCounter.WithLabelValues(errorType(err)).Inc()
		l.Error().Err(err).Str("query", req.Query).Str(log.FieldIndex, req.Index).Msg("search failed")

		if errors.Is(err, repository.ErrUnavailable) {
			response.ServiceUnavailable(c, "index store is unavailable")
			return
		}
		response.InternalError(c, "search failed")
		return
	}

	requestsCounter.WithLabelValues("success").Inc()
	latencyHistogram.WithLabelValues(req.Index).Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, result)
}
