// Package views renders the HTML pages of the explorer.
//
// Every page is parsed together with the shared layout; the home page uses
// the bare layout without header and footer.
package views

import (
	"embed"
	"fmt"
	"html/template"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page template names
const (
	PageHome      = "home"
	PageAPOD      = "apod"
	PageGallery   = "gallery"
	PageRovers    = "mars-rovers"
	PageISS       = "iss-tracker"
	PageAsteroids = "asteroids"
	PageNotFound  = "not-found"
)

var bare = map[string]bool{PageHome: true}

// Funcs are the template helpers
var Funcs = template.FuncMap{
	"distance":  FormatDistance,
	"danger":    DangerClass,
	"cleanName": CleanName,
	"truncate":  Truncate,
	"total":     FormatTotal,
	"coord":     FormatCoord,
	"number":    FormatNumber,
	"clock":     FormatTimestamp,
	"original":  OriginalImage,
}

// Renderer is a gin HTML renderer holding one template set per page
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page with its layout
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageHome, PageAPOD, PageGallery, PageRovers, PageISS, PageAsteroids, PageNotFound} {
		layout := "templates/layout.html"
		if bare[page] {
			layout = "templates/bare.html"
		}
		t, err := template.New(page).Funcs(Funcs).ParseFS(templateFS, layout, "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s page: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

// Instance implements render.HTMLRender
func (r *Renderer) Instance(name string, data any) render.Render {
	return render.HTML{
		Template: r.pages[name],
		Name:     "layout",
		Data:     data,
	}
}
