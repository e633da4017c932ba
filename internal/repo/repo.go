// Package repo provides database repositories
package repo

import (
	"context"
	"errors"
	"fmt"

	"nasa-explorer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pool and verifies it with a ping
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	return pool, nil
}

// IssRepo handles ISS data persistence
type IssRepo struct {
	pool *pgxpool.Pool
}

// NewIssRepo creates a new ISS repository
func NewIssRepo(pool *pgxpool.Pool) *IssRepo {
	return &IssRepo{pool: pool}
}

// InsertLog inserts a new ISS fetch log
func (r *IssRepo) InsertLog(ctx context.Context, sourceURL string, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO iss_fetch_log (source_url, payload) VALUES ($1, $2)",
		sourceURL, payload)
	return err
}

// GetLatest retrieves the most recent ISS log
func (r *IssRepo) GetLatest(ctx context.Context) (*domain.IssLog, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, fetched_at, source_url, payload FROM iss_fetch_log ORDER BY id DESC LIMIT 1")

	var log domain.IssLog
	err := row.Scan(&log.ID, &log.FetchedAt, &log.SourceURL, &log.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// GetLastN retrieves the last N ISS logs, newest first
func (r *IssRepo) GetLastN(ctx context.Context, n int) ([]domain.IssLog, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, fetched_at, source_url, payload FROM iss_fetch_log ORDER BY id DESC LIMIT $1", n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.IssLog
	for rows.Next() {
		var item domain.IssLog
		if err := rows.Scan(&item.ID, &item.FetchedAt, &item.SourceURL, &item.Payload); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// SnapshotRepo archives raw upstream payloads per source
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepo creates a new snapshot repository
func NewSnapshotRepo(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// Write stores one payload for source
func (r *SnapshotRepo) Write(ctx context.Context, source string, payload []byte) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO space_cache(source, payload) VALUES ($1,$2)",
		source, payload)
	return err
}

// GetLatest gets the latest snapshot for a source; nil when there is none
func (r *SnapshotRepo) GetLatest(ctx context.Context, source string) (*domain.Snapshot, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT id, source, fetched_at, payload FROM space_cache WHERE source = $1 ORDER BY id DESC LIMIT 1",
		source)

	var snap domain.Snapshot
	err := row.Scan(&snap.ID, &snap.Source, &snap.FetchedAt, &snap.Payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Prune keeps the newest keep snapshots of source and returns how many were deleted
func (r *SnapshotRepo) Prune(ctx context.Context, source string, keep int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM space_cache
		WHERE source = $1 AND id NOT IN (
			SELECT id FROM space_cache WHERE source = $1 ORDER BY id DESC LIMIT $2
		)`, source, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InitDB initializes database tables
func InitDB(ctx context.Context, pool *pgxpool.Pool) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS iss_fetch_log(
			id BIGSERIAL PRIMARY KEY,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			source_url TEXT NOT NULL,
			payload JSONB NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS space_cache(
			id BIGSERIAL PRIMARY KEY,
			source TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			payload JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ix_space_cache_source
		 ON space_cache(source,fetched_at DESC)`,
	}

	for _, q := range queries {
		if _, err := pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}
