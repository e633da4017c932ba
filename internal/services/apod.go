package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"

	"nasa-explorer/internal/cache"
	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/domain"
)

// FirstAPODDate is the first published picture of the day
var FirstAPODDate = time.Date(1995, time.June, 16, 0, 0, 0, 0, time.UTC)

// Date validation failures; both also match ErrInvalidInput
var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrDateOutOfRange = errors.New("date out of range")
)

const dateLayout = "2006-01-02"

// publishZone is where a new picture appears at local midnight.
var publishZone = loadZone("America/New_York", -5*60*60)

func loadZone(name string, offset int) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, offset)
	}
	return loc
}

// LatestAPODDate is the newest published date at now, taken in US Eastern time
func LatestAPODDate(now time.Time) time.Time {
	y, m, d := now.In(publishZone).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ApodService serves the Astronomy Picture of the Day
type ApodService struct {
	client  *clients.NasaClient
	cache   *cache.QueryCache
	archive Archive
	now     func() time.Time
}

// NewApodService creates a new APOD service
func NewApodService(client *clients.NasaClient, qc *cache.QueryCache, archive Archive) *ApodService {
	if archive == nil {
		archive = NopArchive{}
	}
	return &ApodService{client: client, cache: qc, archive: archive, now: time.Now}
}

// Get returns the picture for date (YYYY-MM-DD); empty means today
func (s *ApodService) Get(ctx context.Context, date string) (*domain.PictureOfDay, error) {
	if err := ValidateAPODDate(date, s.now()); err != nil {
		return nil, err
	}

	return cache.Fetch(ctx, s.cache, cache.Key("apod", date), func(ctx context.Context) (*domain.PictureOfDay, error) {
		apod, raw, err := s.client.FetchAPOD(ctx, date)
		if err != nil {
			return nil, err
		}
		archive(ctx, s.archive, SourceAPOD, raw)
		return apod, nil
	})
}

// ValidateAPODDate accepts an empty date or a day between FirstAPODDate and LatestAPODDate
func ValidateAPODDate(date string, now time.Time) error {
	if date == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return fmt.Errorf("%w: %w: %q is not YYYY-MM-DD", ErrInvalidInput, ErrInvalidDate, date)
	}

	today := LatestAPODDate(now)
	if t.Before(FirstAPODDate) || t.After(today) {
		return fmt.Errorf("%w: %w: %s is not between %s and %s",
			ErrInvalidInput, ErrDateOutOfRange, date, FirstAPODDate.Format(dateLayout), today.Format(dateLayout))
	}
	return nil
}

// Years lists the selectable years from now's year down to 1995
func Years(now time.Time) []int {
	years := make([]int, 0, now.Year()-FirstAPODDate.Year()+1)
	for y := LatestAPODDate(now).Year(); y >= FirstAPODDate.Year(); y-- {
		years = append(years, y)
	}
	return years
}
