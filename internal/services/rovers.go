package services

import (
	"context"
	"strconv"
	"strings"

	"nasa-explorer/internal/cache"
	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/domain"
)

// AllCameras selects photos from every camera of a rover
const AllCameras = "all_cameras"

// DefaultSol is the sol shown when the rover page opens
const DefaultSol = 1000

// Rover describes one rover of the catalog
type Rover struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	LandingDate string          `json:"landing_date"`
	Status      string          `json:"status"`
	Cameras     []domain.Camera `json:"cameras"`
}

// HasCamera reports whether the rover carries the named camera
func (r Rover) HasCamera(name string) bool {
	for _, c := range r.Cameras {
		if c.Name == name {
			return true
		}
	}
	return false
}

var (
	hazardCams = []domain.Camera{
		{Name: "FHAZ", FullName: "Front Hazard Avoidance Camera"},
		{Name: "RHAZ", FullName: "Rear Hazard Avoidance Camera"},
	}
	merCams = append(append([]domain.Camera{}, hazardCams...),
		domain.Camera{Name: "NAVCAM", FullName: "Navigation Camera"},
		domain.Camera{Name: "PANCAM", FullName: "Panoramic Camera"},
		domain.Camera{Name: "MINITES", FullName: "Miniature Thermal Emission Spectrometer"},
	)
)

// Rovers is the rover catalog in display order
var Rovers = []Rover{
	{
		ID:          "curiosity",
		Name:        "Curiosity",
		Description: "Mars Science Laboratory Curiosity, the largest rover sent to Mars, has explored Gale crater since 2012.",
		LandingDate: "2012-08-06",
		Status:      "Active",
		Cameras: append(append([]domain.Camera{}, hazardCams...),
			domain.Camera{Name: "MAST", FullName: "Mast Camera"},
			domain.Camera{Name: "CHEMCAM", FullName: "Chemistry and Camera Complex"},
			domain.Camera{Name: "MAHLI", FullName: "Mars Hand Lens Imager"},
			domain.Camera{Name: "MARDI", FullName: "Mars Descent Imager"},
			domain.Camera{Name: "NAVCAM", FullName: "Navigation Camera"},
		),
	},
	{
		ID:          "perseverance",
		Name:        "Perseverance",
		Description: "The Mars 2020 rover looks for signs of past habitability and collects samples.",
		LandingDate: "2021-02-18",
		Status:      "Active",
		Cameras: []domain.Camera{
			{Name: "FRONT_HAZCAM_LEFT_A", FullName: "Front Hazard Avoidance Camera - Left"},
			{Name: "FRONT_HAZCAM_RIGHT_A", FullName: "Front Hazard Avoidance Camera - Right"},
			{Name: "REAR_HAZCAM_LEFT", FullName: "Rear Hazard Avoidance Camera - Left"},
			{Name: "REAR_HAZCAM_RIGHT", FullName: "Rear Hazard Avoidance Camera - Right"},
			{Name: "NAVCAM_LEFT", FullName: "Navigation Camera - Left"},
			{Name: "NAVCAM_RIGHT", FullName: "Navigation Camera - Right"},
			{Name: "MCZ_LEFT", FullName: "Mastcam-Z Left"},
			{Name: "MCZ_RIGHT", FullName: "Mastcam-Z Right"},
			{Name: "SKYCAM", FullName: "MEDA Skycam"},
			{Name: "SHERLOC_WATSON", FullName: "SHERLOC Watson Camera"},
		},
	},
	{
		ID:          "opportunity",
		Name:        "Opportunity",
		Description: "Part of the Mars Exploration Rovers mission, Opportunity explored Mars from 2004 to 2018.",
		LandingDate: "2004-01-25",
		Status:      "Inactive (2018)",
		Cameras:     merCams,
	},
	{
		ID:          "spirit",
		Name:        "Spirit",
		Description: "Twin of Opportunity, Spirit explored Gusev crater from 2004 to 2010.",
		LandingDate: "2004-01-04",
		Status:      "Inactive (2010)",
		Cameras:     merCams,
	},
}

// FindRover looks a rover up by id
func FindRover(id string) (Rover, bool) {
	for _, r := range Rovers {
		if r.ID == id {
			return r, true
		}
	}
	return Rover{}, false
}

// RoverFilter selects one page of rover photos
type RoverFilter struct {
	Rover  string
	Sol    int
	Camera string
	Page   int
}

// normalize validates f against the catalog and fills defaults.
func (f RoverFilter) normalize() (RoverFilter, error) {
	f.Rover = strings.ToLower(strings.TrimSpace(f.Rover))
	rover, ok := FindRover(f.Rover)
	if !ok {
		return f, invalid("unknown rover %q", f.Rover)
	}
	if f.Sol < 1 {
		return f, invalid("sol must be at least 1, got %d", f.Sol)
	}
	if f.Camera == AllCameras {
		f.Camera = ""
	}
	f.Camera = strings.ToUpper(f.Camera)
	if f.Camera != "" && !rover.HasCamera(f.Camera) {
		return f, invalid("rover %s has no camera %q", rover.Name, f.Camera)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	return f, nil
}

// RoverService serves Mars rover photos
type RoverService struct {
	client *clients.NasaClient
	cache  *cache.QueryCache
}

// NewRoverService creates a new rover service
func NewRoverService(client *clients.NasaClient, qc *cache.QueryCache) *RoverService {
	return &RoverService{client: client, cache: qc}
}

// Photos returns one page of photos for the filter
func (s *RoverService) Photos(ctx context.Context, filter RoverFilter) (*domain.RoverPhotoPage, error) {
	f, err := filter.normalize()
	if err != nil {
		return nil, err
	}

	key := cache.Key("mars-rover", f.Rover, strconv.Itoa(f.Sol), f.Camera, strconv.Itoa(f.Page))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*domain.RoverPhotoPage, error) {
		payload, err := s.client.FetchRoverPhotos(ctx, f.Rover, f.Sol, f.Camera, f.Page)
		if err != nil {
			return nil, err
		}
		photos := payload.Photos
		if photos == nil {
			photos = []domain.RoverPhoto{}
		}
		return &domain.RoverPhotoPage{
			Rover:  f.Rover,
			Sol:    f.Sol,
			Camera: f.Camera,
			Page:   f.Page,
			Photos: photos,
		}, nil
	})
}
