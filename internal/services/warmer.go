package services

import (
	"context"
	"time"

	"nasa-explorer/internal/asteroids"
	"nasa-explorer/internal/logging"
)

// Warmer prefetches today's picture and the current asteroid week so the
// first visitor of the day gets a cached answer.
type Warmer struct {
	apod      *ApodService
	asteroids *AsteroidService
	interval  time.Duration
	now       func() time.Time
}

// NewWarmer creates a new cache warmer
func NewWarmer(apod *ApodService, ast *AsteroidService, interval time.Duration) *Warmer {
	return &Warmer{apod: apod, asteroids: ast, interval: interval, now: time.Now}
}

// Warm fetches every warmed query once and returns how many succeeded
func (w *Warmer) Warm(ctx context.Context) int {
	log := logging.With("warmer")
	ok := 0

	if _, err := w.apod.Get(ctx, ""); err != nil {
		log.Warn().Err(err).Msg("Failed to warm APOD")
	} else {
		ok++
	}

	if _, err := w.asteroids.Feed(ctx, asteroids.NewWindow(w.now())); err != nil {
		log.Warn().Err(err).Msg("Failed to warm NEO feed")
	} else {
		ok++
	}

	log.Debug().Int("warmed", ok).Msg("Cache warm finished")
	return ok
}

// Serve warms immediately and then on every interval until ctx is done
func (w *Warmer) Serve(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		w.Warm(ctx)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Warmer) String() string {
	return "cache-warmer"
}
