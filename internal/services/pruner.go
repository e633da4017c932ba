package services

import (
	"context"
	"time"

	"nasa-explorer/internal/logging"
)

// SnapshotPruner deletes all but the newest keep snapshots of a source
type SnapshotPruner interface {
	Prune(ctx context.Context, source string, keep int) (int64, error)
}

// Pruner bounds the archive on a fixed interval
type Pruner struct {
	store    SnapshotPruner
	keep     int
	interval time.Duration
}

// NewPruner creates a pruner keeping keep snapshots per archived source
func NewPruner(store SnapshotPruner, keep int, interval time.Duration) *Pruner {
	return &Pruner{store: store, keep: keep, interval: interval}
}

// Prune trims every archived source once and returns the number of deleted rows
func (p *Pruner) Prune(ctx context.Context) int64 {
	log := logging.With("pruner")
	var total int64
	for _, source := range []string{SourceAPOD, SourceNEO} {
		n, err := p.store.Prune(ctx, source, p.keep)
		if err != nil {
			log.Warn().Err(err).Str("source", source).Msg("Failed to prune archive")
			continue
		}
		total += n
	}
	if total > 0 {
		log.Info().Int64("deleted", total).Int("keep", p.keep).Msg("Pruned archive")
	}
	return total
}

// Serve prunes on every interval until ctx is done
func (p *Pruner) Serve(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

func (p *Pruner) String() string {
	return "archive-pruner"
}
