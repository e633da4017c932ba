// Package clients provides HTTP clients for external APIs
package clients

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"nasa-explorer/internal/domain"

	"github.com/goccy/go-json"
)

// ImageSearchPayload is the image library search response
type ImageSearchPayload struct {
	Collection struct {
		Items    []ImageSearchItem `json:"items"`
		Metadata struct {
			TotalHits int `json:"total_hits"`
		} `json:"metadata"`
	} `json:"collection"`
}

// ImageSearchItem is one raw search hit
type ImageSearchItem struct {
	Data  []ImageSearchData `json:"data"`
	Links []ImageSearchLink `json:"links"`
}

// ImageSearchData holds the descriptive fields of a search hit
type ImageSearchData struct {
	NasaID      string `json:"nasa_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DateCreated string `json:"date_created"`
}

// ImageSearchLink is a rendition link of a search hit
type ImageSearchLink struct {
	Href string `json:"href"`
	Rel  string `json:"rel"`
}

// RoverPhotosPayload is the Mars photos response
type RoverPhotosPayload struct {
	Photos []domain.RoverPhoto `json:"photos"`
}

// NeoFeedPayload is the date-keyed near-earth object feed
type NeoFeedPayload struct {
	ElementCount     int                    `json:"element_count"`
	NearEarthObjects map[string][]NeoObject `json:"near_earth_objects"`
}

// NeoObject is one asteroid entry of the feed
type NeoObject struct {
	ID                     string            `json:"id"`
	Name                   string            `json:"name"`
	EstimatedDiameter      EstimatedDiameter `json:"estimated_diameter"`
	IsPotentiallyHazardous bool              `json:"is_potentially_hazardous_asteroid"`
	CloseApproachData      []CloseApproach   `json:"close_approach_data"`
}

// EstimatedDiameter holds the diameter ranges per unit
type EstimatedDiameter struct {
	Meters struct {
		Min float64 `json:"estimated_diameter_min"`
		Max float64 `json:"estimated_diameter_max"`
	} `json:"meters"`
}

// CloseApproach is one approach of an asteroid; numeric fields arrive as strings
type CloseApproach struct {
	CloseApproachDate string `json:"close_approach_date"`
	RelativeVelocity  struct {
		KilometersPerHour string `json:"kilometers_per_hour"`
	} `json:"relative_velocity"`
	MissDistance struct {
		Kilometers string `json:"kilometers"`
	} `json:"miss_distance"`
}

// NasaClient fetches data from api.nasa.gov
type NasaClient struct {
	http    *HTTPClient
	baseURL string
	apiKey  string
}

// NewNasaClient creates a new NASA API client
func NewNasaClient(baseURL, apiKey string, opts Options) *NasaClient {
	if opts.Source == "" {
		opts.Source = "nasa"
	}
	return &NasaClient{
		http:    NewHTTPClient(opts),
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *NasaClient) query() url.Values {
	q := url.Values{}
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}
	return q
}

// FetchAPOD fetches the Astronomy Picture of the Day; an empty date means today
func (c *NasaClient) FetchAPOD(ctx context.Context, date string) (*domain.PictureOfDay, []byte, error) {
	q := c.query()
	q.Set("thumbs", "true")
	if date != "" {
		q.Set("date", date)
	}

	body, err := c.http.Get(ctx, c.baseURL+"/planetary/apod", q)
	if err != nil {
		return nil, nil, err
	}

	var apod domain.PictureOfDay
	if err := decode(c.http.Source(), body, &apod); err != nil {
		return nil, nil, err
	}
	if apod.Date == "" || apod.Title == "" {
		return nil, nil, fmt.Errorf("%s: apod without date or title: %w", c.http.Source(), ErrPayload)
	}
	return &apod, body, nil
}

// FetchRoverPhotos fetches one page of photos for a rover and sol; an empty camera means all cameras
func (c *NasaClient) FetchRoverPhotos(ctx context.Context, rover string, sol int, camera string, page int) (*RoverPhotosPayload, error) {
	q := c.query()
	q.Set("sol", strconv.Itoa(sol))
	q.Set("page", strconv.Itoa(page))
	if camera != "" {
		q.Set("camera", camera)
	}

	endpoint := fmt.Sprintf("%s/mars-photos/api/v1/rovers/%s/photos", c.baseURL, url.PathEscape(rover))
	body, err := c.http.Get(ctx, endpoint, q)
	if err != nil {
		return nil, err
	}

	var payload RoverPhotosPayload
	if err := decode(c.http.Source(), body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// FetchNeoFeed fetches near-earth objects with close approaches between start and end (YYYY-MM-DD)
func (c *NasaClient) FetchNeoFeed(ctx context.Context, start, end string) (*NeoFeedPayload, []byte, error) {
	q := c.query()
	q.Set("start_date", start)
	q.Set("end_date", end)

	body, err := c.http.Get(ctx, c.baseURL+"/neo/rest/v1/feed", q)
	if err != nil {
		return nil, nil, err
	}

	var payload NeoFeedPayload
	if err := decode(c.http.Source(), body, &payload); err != nil {
		return nil, nil, err
	}
	if payload.NearEarthObjects == nil {
		return nil, nil, fmt.Errorf("%s: feed without near_earth_objects: %w", c.http.Source(), ErrPayload)
	}
	return &payload, body, nil
}

// ImagesClient searches the NASA Image and Video Library
type ImagesClient struct {
	http    *HTTPClient
	baseURL string
}

// NewImagesClient creates a new image library client
func NewImagesClient(baseURL string, opts Options) *ImagesClient {
	if opts.Source == "" {
		opts.Source = "nasa-images"
	}
	return &ImagesClient{
		http:    NewHTTPClient(opts),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Search fetches one page of image results for query
func (c *ImagesClient) Search(ctx context.Context, query string, page int) (*ImageSearchPayload, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("media_type", "image")
	q.Set("page", strconv.Itoa(page))

	body, err := c.http.Get(ctx, c.baseURL+"/search", q)
	if err != nil {
		return nil, err
	}

	var payload ImageSearchPayload
	if err := decode(c.http.Source(), body, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// IssClient fetches ISS position data
type IssClient struct {
	http    *HTTPClient
	baseURL string
}

// NewIssClient creates a new ISS client
func NewIssClient(baseURL string, opts Options) *IssClient {
	if opts.Source == "" {
		opts.Source = "iss"
	}
	return &IssClient{
		http:    NewHTTPClient(opts),
		baseURL: baseURL,
	}
}

// BaseURL returns the base URL
func (c *IssClient) BaseURL() string {
	return c.baseURL
}

type issPayload struct {
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Timestamp  int64    `json:"timestamp"`
	Velocity   float64  `json:"velocity"`
	Altitude   float64  `json:"altitude"`
	Visibility string   `json:"visibility"`
}

// FetchPosition fetches current ISS position; latitude and longitude are required
func (c *IssClient) FetchPosition(ctx context.Context) (*domain.ISSPosition, []byte, error) {
	body, err := c.http.Get(ctx, c.baseURL, nil)
	if err != nil {
		return nil, nil, err
	}

	var p issPayload
	if err := decode(c.http.Source(), body, &p); err != nil {
		return nil, nil, err
	}
	if p.Latitude == nil || p.Longitude == nil {
		return nil, nil, fmt.Errorf("%s: position without latitude/longitude: %w", c.http.Source(), ErrPayload)
	}

	return &domain.ISSPosition{
		Latitude:   *p.Latitude,
		Longitude:  *p.Longitude,
		Timestamp:  p.Timestamp,
		Velocity:   p.Velocity,
		Altitude:   p.Altitude,
		Visibility: p.Visibility,
	}, body, nil
}

func decode(source string, body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%s: %w: %w", source, ErrPayload, err)
	}
	return nil
}
