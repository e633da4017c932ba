// Package handlers provides HTTP request handlers
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"nasa-explorer/internal/cache"
	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/logging"
	"nasa-explorer/internal/metrics"
	"nasa-explorer/internal/services"
	"nasa-explorer/internal/tracker"
	"nasa-explorer/internal/views"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the dependencies of the handlers
type Services struct {
	Apod      *services.ApodService
	Gallery   *services.GalleryService
	Rovers    *services.RoverService
	Asteroids *services.AsteroidService
	Iss       *services.IssService
	Archive   *services.ArchiveService
	Cache     *cache.QueryCache
}

// Handler holds all service dependencies
type Handler struct {
	Services
	now func() time.Time
}

// NewHandler creates a new handler with services
func NewHandler(s Services) *Handler {
	return &Handler{Services: s, now: time.Now}
}

// NewRouter builds the engine with middleware, renderer and routes
func NewRouter(h *Handler, renderer *views.Renderer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(metrics.GinMiddleware())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", RequestIDHeader}
	config.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	config.ExposeHeaders = []string{RequestIDHeader}
	r.Use(cors.New(config))

	r.HTMLRender = renderer
	SetupRoutes(r, h)
	return r
}

// SetupRoutes configures all routes
func SetupRoutes(r *gin.Engine, h *Handler) {
	// Health and metrics
	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Pages
	r.GET("/", h.HomePage)
	r.GET("/apod", h.ApodPage)
	r.GET("/gallery", h.GalleryPage)
	r.GET("/mars-rovers", h.RoversPage)
	r.GET("/iss-tracker", h.IssPage)
	r.GET("/asteroids", h.AsteroidsPage)

	api := r.Group("/api")
	{
		api.GET("/apod", h.GetAPOD)
		api.GET("/gallery", h.SearchGallery)

		api.GET("/rovers", h.ListRovers)
		api.GET("/rovers/:rover/photos", h.GetRoverPhotos)

		api.GET("/asteroids", h.GetAsteroids)
		api.GET("/asteroids/stats", h.GetAsteroidStats)
		api.GET("/asteroids/chart.svg", h.GetAsteroidChart)

		api.GET("/iss", h.GetISS)
		api.PUT("/iss/interval", h.SetISSInterval)
		api.PUT("/iss/follow", h.SetISSFollow)
		api.GET("/iss/stream", h.StreamISS)
		api.GET("/iss/last", h.GetLastISS)
		api.GET("/iss/trend", h.GetISSTrend)

		api.GET("/archive/:src/latest", h.GetArchiveLatest)

		api.GET("/cache/stats", h.CacheStats)
		api.POST("/cache/invalidate", h.InvalidateCache)
	}

	r.NoRoute(h.NotFound)
}

// Health handles health check requests
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, domain.Health{
		Status: "ok",
		Now:    h.now().UTC(),
	})
}

// NotFound answers unknown API paths with JSON and everything else with the 404 page
func (h *Handler) NotFound(c *gin.Context) {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		c.JSON(http.StatusNotFound, domain.ErrorResponse("NOT_FOUND", "no route for "+c.Request.URL.Path))
		return
	}
	c.HTML(http.StatusNotFound, views.PageNotFound, views.NewPage("Page not found", "", nil, nil))
}

// classify maps an error to its HTTP status and envelope code.
func classify(err error) (int, string) {
	var se *clients.StatusError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, tracker.ErrInvalidInterval):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, services.ErrArchiveDisabled), errors.Is(err, services.ErrHistoryDisabled):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	case errors.Is(err, clients.ErrCircuitOpen), errors.Is(err, clients.ErrRateLimited):
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
	case errors.As(err, &se) && se.Code == http.StatusNotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, clients.ErrStatus), errors.Is(err, clients.ErrTransport), errors.Is(err, clients.ErrPayload):
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("code", code).Msg("Request failed")
	}
	c.JSON(status, domain.ErrorResponse(code, err.Error()))
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, domain.ErrorResponse("BAD_REQUEST", err.Error()))
}
