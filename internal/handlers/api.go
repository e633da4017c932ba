package handlers

import (
	"bytes"
	"errors"
	"net/http"
	"time"

	"nasa-explorer/internal/asteroids"
	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/paging"
	"nasa-explorer/internal/services"

	"github.com/gin-gonic/gin"
)

type apodQuery struct {
	Date string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

type galleryQuery struct {
	Query string `form:"q" binding:"required"`
	Page  int    `form:"page,default=1" binding:"min=1"`
}

type roverQuery struct {
	Sol    int    `form:"sol,default=1000" binding:"min=1"`
	Camera string `form:"camera"`
	Page   int    `form:"page,default=1" binding:"min=1"`
}

type windowQuery struct {
	Start string `form:"start" binding:"omitempty,datetime=2006-01-02"`
}

type intervalBody struct {
	IntervalMs int64 `json:"interval_ms" binding:"required,gt=0"`
}

type followBody struct {
	Follow *bool `json:"follow" binding:"required"`
}

// GetAPOD handles requests for the picture of the day
func (h *Handler) GetAPOD(c *gin.Context) {
	var q apodQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	apod, err := h.Apod.Get(c.Request.Context(), q.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(apod))
}

// SearchGallery handles image library searches
func (h *Handler) SearchGallery(c *gin.Context) {
	var q galleryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	res, err := h.Gallery.Search(c.Request.Context(), q.Query, q.Page)
	if err != nil {
		h.fail(c, err)
		return
	}

	cursor := paging.Cursor{Page: res.Page}
	c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{
		"query":      res.Query,
		"page":       res.Page,
		"items":      res.Items,
		"total_hits": res.TotalHits,
		"has_next":   cursor.HasNextImage(len(res.Items), res.TotalHits),
	}))
}

// ListRovers handles requests for the rover catalog
func (h *Handler) ListRovers(c *gin.Context) {
	c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{
		"rovers":      services.Rovers,
		"default_sol": services.DefaultSol,
	}))
}

// GetRoverPhotos handles requests for one page of rover photos
func (h *Handler) GetRoverPhotos(c *gin.Context) {
	var q roverQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	page, err := h.Rovers.Photos(c.Request.Context(), services.RoverFilter{
		Rover:  c.Param("rover"),
		Sol:    q.Sol,
		Camera: q.Camera,
		Page:   q.Page,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	cursor := paging.Cursor{Page: page.Page}
	c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{
		"rover":    page.Rover,
		"sol":      page.Sol,
		"camera":   page.Camera,
		"page":     page.Page,
		"photos":   page.Photos,
		"has_next": cursor.HasNext(len(page.Photos), paging.RoverPageSize, 0),
	}))
}

func (h *Handler) window(c *gin.Context) (asteroids.Window, bool) {
	var q windowQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return asteroids.Window{}, false
	}
	w, err := asteroids.ParseWindow(q.Start, h.now())
	if err != nil {
		badRequest(c, err)
		return asteroids.Window{}, false
	}
	return w, true
}

// GetAsteroids handles requests for the near-earth objects of a window
func (h *Handler) GetAsteroids(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}

	list, err := h.Asteroids.Feed(c.Request.Context(), w)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{
		"start_date": w.StartDate(),
		"end_date":   w.EndDate(),
		"asteroids":  list,
	}))
}

// GetAsteroidStats handles requests for the aggregate of a window
func (h *Handler) GetAsteroidStats(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}

	stats, err := h.Asteroids.Stats(c.Request.Context(), w)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(stats))
}

// GetAsteroidChart handles requests for the closest approach chart
func (h *Handler) GetAsteroidChart(c *gin.Context) {
	w, ok := h.window(c)
	if !ok {
		return
	}

	list, err := h.Asteroids.Feed(c.Request.Context(), w)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := asteroids.RenderDistanceChart(&buf, w, list); err != nil {
		if errors.Is(err, asteroids.ErrNoData) {
			c.JSON(http.StatusNotFound, domain.ErrorResponse("NOT_FOUND", err.Error()))
			return
		}
		h.fail(c, err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
}

// GetISS handles requests for the live tracker state
func (h *Handler) GetISS(c *gin.Context) {
	c.JSON(http.StatusOK, domain.SuccessResponse(h.Iss.Current()))
}

// SetISSInterval handles poll interval changes
func (h *Handler) SetISSInterval(c *gin.Context) {
	var body intervalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}

	snap, err := h.Iss.SetInterval(time.Duration(body.IntervalMs) * time.Millisecond)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(snap))
}

// SetISSFollow handles follow mode changes
func (h *Handler) SetISSFollow(c *gin.Context) {
	var body followBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(h.Iss.SetFollow(*body.Follow)))
}

// GetLastISS handles requests for the last persisted ISS position
func (h *Handler) GetLastISS(c *gin.Context) {
	last, err := h.Iss.Last(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if last == nil {
		c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{"message": "no data"}))
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(last))
}

// GetISSTrend handles requests for ISS movement trend
func (h *Handler) GetISSTrend(c *gin.Context) {
	trend, err := h.Iss.CalculateTrend(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.SuccessResponse(trend))
}

// GetArchiveLatest handles requests for the latest archived payload of a source
func (h *Handler) GetArchiveLatest(c *gin.Context) {
	source := c.Param("src")
	snap, err := h.Archive.GetLatest(c.Request.Context(), source)
	if err != nil {
		h.fail(c, err)
		return
	}

	if snap == nil {
		c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{
			"source":  source,
			"message": "no data",
		}))
		return
	}

	c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{
		"source":     snap.Source,
		"fetched_at": snap.FetchedAt,
		"payload":    snap.Payload,
	}))
}

// CacheStats handles requests for query cache counters
func (h *Handler) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, domain.SuccessResponse(h.Cache.Stats()))
}

// InvalidateCache drops one key (?key=) or every key with a prefix (?prefix=)
// so the next request refetches
func (h *Handler) InvalidateCache(c *gin.Context) {
	key, prefix := c.Query("key"), c.Query("prefix")
	switch {
	case key != "":
		c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{"removed": h.Cache.Invalidate(key)}))
	case prefix != "":
		c.JSON(http.StatusOK, domain.SuccessResponse(gin.H{"removed": h.Cache.InvalidatePrefix(prefix)}))
	default:
		c.JSON(http.StatusBadRequest, domain.ErrorResponse("BAD_REQUEST", "key or prefix is required"))
	}
}
