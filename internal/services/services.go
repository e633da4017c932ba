// Package services provides business logic
package services

import (
	"context"
	"errors"
	"fmt"

	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/logging"
)

// ErrInvalidInput marks caller mistakes; handlers answer them with 400
var ErrInvalidInput = errors.New("invalid input")

// ErrArchiveDisabled is returned by archive reads when no database is configured
var ErrArchiveDisabled = errors.New("archive disabled: no database configured")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Archive stores raw upstream payloads per source
type Archive interface {
	Write(ctx context.Context, source string, payload []byte) error
	GetLatest(ctx context.Context, source string) (*domain.Snapshot, error)
}

// NopArchive is the archive used without a database
type NopArchive struct{}

// Write discards the payload
func (NopArchive) Write(context.Context, string, []byte) error { return nil }

// GetLatest always fails with ErrArchiveDisabled
func (NopArchive) GetLatest(context.Context, string) (*domain.Snapshot, error) {
	return nil, ErrArchiveDisabled
}

// Archived sources
const (
	SourceAPOD = "apod"
	SourceNEO  = "neo"
)

// ArchiveService exposes archived snapshots
type ArchiveService struct {
	archive Archive
}

// NewArchiveService creates a new archive service
func NewArchiveService(archive Archive) *ArchiveService {
	if archive == nil {
		archive = NopArchive{}
	}
	return &ArchiveService{archive: archive}
}

// GetLatest gets the latest snapshot for an archived source
func (s *ArchiveService) GetLatest(ctx context.Context, source string) (*domain.Snapshot, error) {
	if source != SourceAPOD && source != SourceNEO {
		return nil, invalid("unknown archive source %q", source)
	}
	return s.archive.GetLatest(ctx, source)
}

// archive writes best effort; a failed write never fails the request.
func archive(ctx context.Context, a Archive, source string, payload []byte) {
	if err := a.Write(ctx, source, payload); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("source", source).Msg("Failed to archive payload")
	}
}
