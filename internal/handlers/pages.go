package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"nasa-explorer/internal/asteroids"
	"nasa-explorer/internal/logging"
	"nasa-explorer/internal/paging"
	"nasa-explorer/internal/services"
	"nasa-explorer/internal/views"

	"github.com/gin-gonic/gin"
)

// renderPage writes a page whose section may have failed; the page frame still renders.
func (h *Handler) renderPage(c *gin.Context, name, title string, body any, err error) {
	status := http.StatusOK
	if err != nil {
		var code string
		status, code = classify(err)
		if status >= http.StatusInternalServerError {
			logging.Ctx(c.Request.Context()).Warn().Err(err).Str("code", code).Str("page", name).Msg("Page section failed")
		}
	}
	c.HTML(status, name, views.NewPage(title, c.Request.URL.Path, body, err))
}

// HomePage renders the landing page
func (h *Handler) HomePage(c *gin.Context) {
	h.renderPage(c, views.PageHome, "NASA Explorer", nil, nil)
}

// ApodPage renders the picture of the day for ?date=, today by default
func (h *Handler) ApodPage(c *gin.Context) {
	now := h.now()
	date := c.Query("date")
	view := views.ApodView{
		Date:  date,
		Min:   services.FirstAPODDate.Format(asteroids.DateLayout),
		Max:   services.LatestAPODDate(now).Format(asteroids.DateLayout),
		Years: services.Years(now),
	}
	if view.Date == "" {
		view.Date = view.Max
	}

	pic, err := h.Apod.Get(c.Request.Context(), date)
	view.Picture = pic
	h.renderPage(c, views.PageAPOD, "Picture of the Day", view, err)
}

// GalleryPage renders one page of image search results
func (h *Handler) GalleryPage(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		query = services.DefaultGalleryQuery
	}
	cursor := paging.NewCursor(paging.Filters{"q": query})
	cursor.Page = queryInt(c, "page", 1)

	res, err := h.Gallery.Search(c.Request.Context(), query, cursor.Page)
	h.renderPage(c, views.PageGallery, "Gallery", views.NewGalleryView(query, cursor, res), err)
}

// RoversPage renders rover photos for ?rover=&sol=&camera=&page=
func (h *Handler) RoversPage(c *gin.Context) {
	id := strings.ToLower(c.DefaultQuery("rover", services.Rovers[0].ID))
	selected, ok := services.FindRover(id)
	sol := queryInt(c, "sol", services.DefaultSol)
	camera := c.DefaultQuery("camera", services.AllCameras)
	cursor := paging.NewCursor(paging.Filters{
		"rover":  selected.ID,
		"sol":    strconv.Itoa(sol),
		"camera": camera,
	})
	cursor.Page = queryInt(c, "page", 1)

	if !ok {
		selected = services.Rovers[0]
		cursor.Filters["rover"] = selected.ID
		err := fmt.Errorf("%w: unknown rover %q", services.ErrInvalidInput, id)
		h.renderPage(c, views.PageRovers, "Mars Rovers", views.NewRoverView(selected, cursor, sol, camera, nil), err)
		return
	}

	photos, err := h.Rovers.Photos(c.Request.Context(), services.RoverFilter{
		Rover:  selected.ID,
		Sol:    sol,
		Camera: camera,
		Page:   cursor.Page,
	})
	h.renderPage(c, views.PageRovers, "Mars Rovers", views.NewRoverView(selected, cursor, sol, camera, photos), err)
}

// IssPage renders the tracker page; live updates arrive over the stream
func (h *Handler) IssPage(c *gin.Context) {
	h.renderPage(c, views.PageISS, "ISS Tracker", views.NewIssView(h.Iss.Current()), nil)
}

// AsteroidsPage renders the near-earth objects of the window starting at ?start=
func (h *Handler) AsteroidsPage(c *gin.Context) {
	w, err := asteroids.ParseWindow(c.Query("start"), h.now())
	if err != nil {
		w = asteroids.NewWindow(h.now())
		err = fmt.Errorf("%w: %w", services.ErrInvalidInput, err)
		h.renderPage(c, views.PageAsteroids, "Asteroids", views.NewAsteroidView(w, nil), err)
		return
	}

	list, err := h.Asteroids.Feed(c.Request.Context(), w)
	h.renderPage(c, views.PageAsteroids, "Asteroids", views.NewAsteroidView(w, list), err)
}

// queryInt reads a positive integer parameter, falling back to def
func queryInt(c *gin.Context, name string, def int) int {
	n, err := strconv.Atoi(c.Query(name))
	if err != nil || n < 1 {
		return def
	}
	return n
}
