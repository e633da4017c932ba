package services

import (
	"context"
	"strconv"
	"strings"

	"nasa-explorer/internal/cache"
	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/domain"
)

// DefaultGalleryQuery is searched when the gallery opens
const DefaultGalleryQuery = "galaxy"

// GallerySuggestions are the quick search terms offered by the gallery
var GallerySuggestions = []string{"galaxy", "nebula", "black hole", "supernova", "aurora", "earth", "jupiter"}

// GalleryService searches the image library
type GalleryService struct {
	client *clients.ImagesClient
	cache  *cache.QueryCache
}

// NewGalleryService creates a new gallery service
func NewGalleryService(client *clients.ImagesClient, qc *cache.QueryCache) *GalleryService {
	return &GalleryService{client: client, cache: qc}
}

// Search returns one page of image results; the query must not be empty
func (s *GalleryService) Search(ctx context.Context, query string, page int) (*domain.ImageSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, invalid("search query must not be empty")
	}
	if page < 1 {
		page = 1
	}

	key := cache.Key("nasa-images", query, strconv.Itoa(page))
	return cache.Fetch(ctx, s.cache, key, func(ctx context.Context) (*domain.ImageSearchResult, error) {
		payload, err := s.client.Search(ctx, query, page)
		if err != nil {
			return nil, err
		}
		return flattenImages(query, page, payload), nil
	})
}

func flattenImages(query string, page int, payload *clients.ImageSearchPayload) *domain.ImageSearchResult {
	result := &domain.ImageSearchResult{
		Query:     query,
		Page:      page,
		Items:     make([]domain.ImageItem, 0, len(payload.Collection.Items)),
		TotalHits: payload.Collection.Metadata.TotalHits,
	}

	for _, item := range payload.Collection.Items {
		if len(item.Data) == 0 {
			continue
		}
		data := item.Data[0]
		result.Items = append(result.Items, domain.ImageItem{
			NasaID:      data.NasaID,
			Title:       data.Title,
			Description: data.Description,
			DateCreated: data.DateCreated,
			PreviewURL:  previewLink(item.Links),
		})
	}
	return result
}

func previewLink(links []clients.ImageSearchLink) string {
	for _, l := range links {
		if l.Rel == "preview" {
			return l.Href
		}
	}
	if len(links) > 0 {
		return links[0].Href
	}
	return ""
}
