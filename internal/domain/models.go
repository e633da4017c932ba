// Package domain provides domain models for the application
package domain

import (
	"encoding/json"
	"time"
)

// PictureOfDay is one Astronomy Picture of the Day record
type PictureOfDay struct {
	Title          string `json:"title"`
	Date           string `json:"date"`
	MediaType      string `json:"media_type"`
	URL            string `json:"url"`
	HDURL          string `json:"hdurl,omitempty"`
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
	Explanation    string `json:"explanation"`
	Copyright      string `json:"copyright,omitempty"`
	ServiceVersion string `json:"service_version,omitempty"`
}

// IsVideo reports whether the record should be embedded rather than shown as an image
func (p PictureOfDay) IsVideo() bool {
	return p.MediaType == "video"
}

// ImageItem is a single image library search hit
type ImageItem struct {
	NasaID      string `json:"nasa_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	DateCreated string `json:"date_created"`
	PreviewURL  string `json:"preview_url"`
}

// ImageSearchResult is one page of image library results
type ImageSearchResult struct {
	Query     string      `json:"query"`
	Page      int         `json:"page"`
	Items     []ImageItem `json:"items"`
	TotalHits int         `json:"total_hits"`
}

// Camera identifies a rover camera
type Camera struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// RoverPhoto is a single Mars rover image
type RoverPhoto struct {
	ID        int64  `json:"id"`
	Sol       int    `json:"sol"`
	ImgSrc    string `json:"img_src"`
	EarthDate string `json:"earth_date,omitempty"`
	Camera    Camera `json:"camera"`
}

// RoverPhotoPage is one page of rover photos for a filter
type RoverPhotoPage struct {
	Rover  string       `json:"rover"`
	Sol    int          `json:"sol"`
	Camera string       `json:"camera,omitempty"`
	Page   int          `json:"page"`
	Photos []RoverPhoto `json:"photos"`
}

// Diameter is an estimated diameter range in meters
type Diameter struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// NearEarthObject is one flattened close approach from the NEO feed
type NearEarthObject struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Date                   string   `json:"date"`
	Diameter               Diameter `json:"diameter"`
	DistanceKm             float64  `json:"distance_km"`
	RelativeVelocity       float64  `json:"relative_velocity"`
	IsPotentiallyHazardous bool     `json:"is_potentially_hazardous"`
}

// AsteroidStats is the aggregate over a list of near-earth objects
type AsteroidStats struct {
	Total          int              `json:"total"`
	HazardousCount int              `json:"hazardous_count"`
	HazardPercent  int              `json:"hazard_percent"`
	Closest        *NearEarthObject `json:"closest,omitempty"`
	Fastest        *NearEarthObject `json:"fastest,omitempty"`
	Largest        *NearEarthObject `json:"largest,omitempty"`
}

// ISSPosition is the latest known station position
type ISSPosition struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Timestamp  int64   `json:"timestamp"`
	Velocity   float64 `json:"velocity"`
	Altitude   float64 `json:"altitude"`
	Visibility string  `json:"visibility"`
}

// Time returns the position timestamp
func (p ISSPosition) Time() time.Time {
	return time.Unix(p.Timestamp, 0).UTC()
}

// IssLog represents an ISS position fetch log entry
type IssLog struct {
	ID        int64           `json:"id"`
	FetchedAt time.Time       `json:"fetched_at"`
	SourceURL string          `json:"source_url"`
	Payload   json.RawMessage `json:"payload"`
}

// Snapshot represents an archived upstream payload
type Snapshot struct {
	ID        int64           `json:"id"`
	Source    string          `json:"source"`
	FetchedAt time.Time       `json:"fetched_at"`
	Payload   json.RawMessage `json:"payload"`
}

// IssTrend represents ISS movement analysis
type IssTrend struct {
	Movement    bool       `json:"movement"`
	DeltaKm     float64    `json:"delta_km"`
	DtSec       float64    `json:"dt_sec"`
	VelocityKmh *float64   `json:"velocity_kmh"`
	FromTime    *time.Time `json:"from_time"`
	ToTime      *time.Time `json:"to_time"`
	FromLat     *float64   `json:"from_lat"`
	FromLon     *float64   `json:"from_lon"`
	ToLat       *float64   `json:"to_lat"`
	ToLon       *float64   `json:"to_lon"`
}

// Health represents health check response
type Health struct {
	Status string    `json:"status"`
	Now    time.Time `json:"now"`
}

// ApiResponse wraps API responses
type ApiResponse struct {
	Ok    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error *ApiError   `json:"error,omitempty"`
}

// ApiError represents an error response
type ApiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponse creates a successful response
func SuccessResponse(data interface{}) ApiResponse {
	return ApiResponse{Ok: true, Data: data}
}

// ErrorResponse creates an error response
func ErrorResponse(code, message string) ApiResponse {
	return ApiResponse{Ok: false, Error: &ApiError{Code: code, Message: message}}
}
