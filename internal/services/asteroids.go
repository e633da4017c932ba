package services

import (
	"context"

	"nasa-explorer/internal/asteroids"
	"nasa-explorer/internal/cache"
	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/domain"
)

// AsteroidService serves the near-earth object feed for a date window
type AsteroidService struct {
	client  *clients.NasaClient
	cache   *cache.QueryCache
	archive Archive
}

// NewAsteroidService creates a new asteroid service
func NewAsteroidService(client *clients.NasaClient, qc *cache.QueryCache, archive Archive) *AsteroidService {
	if archive == nil {
		archive = NopArchive{}
	}
	return &AsteroidService{client: client, cache: qc, archive: archive}
}

// Feed returns the objects approaching within w, closest first
func (s *AsteroidService) Feed(ctx context.Context, w asteroids.Window) ([]domain.NearEarthObject, error) {
	start, end := w.StartDate(), w.EndDate()
	return cache.Fetch(ctx, s.cache, cache.Key("neo", start, end), func(ctx context.Context) ([]domain.NearEarthObject, error) {
		feed, raw, err := s.client.FetchNeoFeed(ctx, start, end)
		if err != nil {
			return nil, err
		}
		list, err := asteroids.Flatten(feed)
		if err != nil {
			return nil, err
		}
		archive(ctx, s.archive, SourceNEO, raw)
		return list, nil
	})
}

// Stats returns the aggregate over the window's feed
func (s *AsteroidService) Stats(ctx context.Context, w asteroids.Window) (domain.AsteroidStats, error) {
	list, err := s.Feed(ctx, w)
	if err != nil {
		return domain.AsteroidStats{}, err
	}
	return asteroids.ComputeStats(list), nil
}
