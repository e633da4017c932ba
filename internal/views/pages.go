package views

import (
	"fmt"
	"net/url"
	"strconv"

	"nasa-explorer/internal/asteroids"
	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/paging"
	"nasa-explorer/internal/services"
	"nasa-explorer/internal/tracker"
)

// NavItem is one header link
type NavItem struct {
	Title  string
	Href   string
	Active bool
}

// Nav returns the header links with the current page marked
func Nav(current string) []NavItem {
	items := []NavItem{
		{Title: "Home", Href: "/"},
		{Title: "Picture of the Day", Href: "/apod"},
		{Title: "Gallery", Href: "/gallery"},
		{Title: "Mars Rovers", Href: "/mars-rovers"},
		{Title: "ISS Tracker", Href: "/iss-tracker"},
		{Title: "Asteroids", Href: "/asteroids"},
	}
	for i := range items {
		items[i].Active = items[i].Href == current
	}
	return items
}

// Page is the data every template receives
type Page struct {
	Title string
	Nav   []NavItem
	// Error is a per-section failure message; the rest of the page still renders.
	Error string
	Body  any
}

// NewPage builds the page frame for path
func NewPage(title, path string, body any, err error) Page {
	p := Page{Title: title, Nav: Nav(path), Body: body}
	if err != nil {
		p.Error = err.Error()
	}
	return p
}

// ApodView is the picture of the day page
type ApodView struct {
	Picture *domain.PictureOfDay
	Date    string
	Min     string
	Max     string
	Years   []int
}

// GalleryView is the image search page
type GalleryView struct {
	Query       string
	Suggestions []string
	Result      *domain.ImageSearchResult
	Cards       []GalleryCard
	Total       string
	Page        int
	PrevURL     string
	NextURL     string
}

// GalleryCard is one image tile
type GalleryCard struct {
	Title       string
	Description string
	Date        string
	PreviewURL  string
	OriginalURL string
}

// NewGalleryView builds the gallery view for a search result, which may be nil
func NewGalleryView(query string, cursor paging.Cursor, res *domain.ImageSearchResult) GalleryView {
	v := GalleryView{Query: query, Suggestions: services.GallerySuggestions, Result: res, Page: cursor.Page}
	if res == nil {
		return v
	}

	v.Total = FormatTotal(res.TotalHits)
	for _, it := range res.Items {
		v.Cards = append(v.Cards, GalleryCard{
			Title:       it.Title,
			Description: Truncate(it.Description, DescriptionLimit),
			Date:        dateOnly(it.DateCreated),
			PreviewURL:  it.PreviewURL,
			OriginalURL: OriginalImage(it.PreviewURL),
		})
	}

	link := func(c paging.Cursor) string {
		return "/gallery?" + url.Values{"q": {query}, "page": {strconv.Itoa(c.Page)}}.Encode()
	}
	if cursor.HasPrev() {
		v.PrevURL = link(cursor.Prev())
	}
	if cursor.HasNextImage(len(res.Items), res.TotalHits) {
		v.NextURL = link(cursor.Next())
	}
	return v
}

// RoverView is the Mars rover photo page
type RoverView struct {
	Rovers   []services.Rover
	Selected services.Rover
	Sol      int
	Camera   string
	Photos   []domain.RoverPhoto
	Page     int
	PrevURL  string
	NextURL  string
}

// NewRoverView builds the rover view; photos may be nil when the fetch failed
func NewRoverView(selected services.Rover, cursor paging.Cursor, sol int, camera string, photos *domain.RoverPhotoPage) RoverView {
	if camera == "" {
		camera = services.AllCameras
	}
	v := RoverView{Rovers: services.Rovers, Selected: selected, Sol: sol, Camera: camera, Page: cursor.Page}
	if photos == nil {
		return v
	}
	v.Photos = photos.Photos

	link := func(c paging.Cursor) string {
		return "/mars-rovers?" + url.Values{
			"rover":  {selected.ID},
			"sol":    {strconv.Itoa(sol)},
			"camera": {camera},
			"page":   {strconv.Itoa(c.Page)},
		}.Encode()
	}
	if cursor.HasPrev() {
		v.PrevURL = link(cursor.Prev())
	}
	if cursor.HasNext(len(photos.Photos), paging.RoverPageSize, 0) {
		v.NextURL = link(cursor.Next())
	}
	return v
}

// IssView is the live tracker page
type IssView struct {
	Snapshot  tracker.Snapshot
	Latitude  string
	Longitude string
	Altitude  string
	Velocity  string
	Time      string
	Intervals []int64
	// Initial map view; the whole globe until a position is known.
	MapLat  float64
	MapLon  float64
	MapZoom int
}

// NewIssView builds the tracker view from a snapshot
func NewIssView(s tracker.Snapshot) IssView {
	v := IssView{Snapshot: s, Latitude: "-", Longitude: "-", Altitude: "-", Velocity: "-", Time: "-", MapZoom: 1}
	for _, d := range tracker.AllowedIntervals {
		v.Intervals = append(v.Intervals, d.Milliseconds())
	}
	if p := s.Position; p != nil {
		v.Latitude = FormatCoord(p.Latitude)
		v.Longitude = FormatCoord(p.Longitude)
		v.Altitude = FormatNumber(p.Altitude)
		v.Velocity = FormatNumber(p.Velocity)
		v.Time = FormatTimestamp(p.Timestamp)
		v.MapLat, v.MapLon, v.MapZoom = p.Latitude, p.Longitude, 3
	}
	return v
}

// AsteroidView is the near-earth object page
type AsteroidView struct {
	Start     string
	End       string
	PrevStart string
	NextStart string
	Rows      []AsteroidRow
	Stats     domain.AsteroidStats
	Closest   string
	Fastest   string
	Largest   string
}

// AsteroidRow is one table line
type AsteroidRow struct {
	Name      string
	Date      string
	Distance  string
	Velocity  string
	Diameter  string
	Class     string
	Hazardous bool
}

// NewAsteroidView builds the asteroid view; list may be nil when the fetch failed
func NewAsteroidView(w asteroids.Window, list []domain.NearEarthObject) AsteroidView {
	v := AsteroidView{
		Start:     w.StartDate(),
		End:       w.EndDate(),
		PrevStart: w.Shift(-asteroids.WindowDays).StartDate(),
		NextStart: w.Shift(asteroids.WindowDays).StartDate(),
	}
	if list == nil {
		return v
	}

	for _, neo := range list {
		v.Rows = append(v.Rows, AsteroidRow{
			Name:      CleanName(neo.Name),
			Date:      neo.Date,
			Distance:  FormatDistance(neo.DistanceKm),
			Velocity:  FormatNumber(neo.RelativeVelocity) + " km/h",
			Diameter:  fmt.Sprintf("%s - %s m", FormatNumber(neo.Diameter.Min), FormatNumber(neo.Diameter.Max)),
			Class:     DangerClass(neo.DistanceKm, neo.IsPotentiallyHazardous),
			Hazardous: neo.IsPotentiallyHazardous,
		})
	}

	v.Stats = asteroids.ComputeStats(list)
	if s := v.Stats; s.Total > 0 {
		v.Closest = fmt.Sprintf("%s (%s)", CleanName(s.Closest.Name), FormatDistance(s.Closest.DistanceKm))
		v.Fastest = fmt.Sprintf("%s (%s km/h)", CleanName(s.Fastest.Name), FormatNumber(s.Fastest.RelativeVelocity))
		v.Largest = fmt.Sprintf("%s (%s m)", CleanName(s.Largest.Name), FormatNumber(s.Largest.Diameter.Max))
	}
	return v
}

func dateOnly(s string) string {
	if len(s) >= 10 {
		return s[:10]
	}
	return s
}
