// Package config provides application configuration from environment variables
package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// AppConfig holds all application configuration
type AppConfig struct {
	Port        string `env:"PORT,default=3000"`
	DatabaseURL string `env:"DATABASE_URL"`
	NatsURL     string `env:"NATS_URL"`
	NatsSubject string `env:"NATS_ISS_SUBJECT,default=iss.position"`

	NasaAPIURL    string `env:"NASA_API_URL,default=https://api.nasa.gov"`
	NasaImagesURL string `env:"NASA_IMAGES_URL,default=https://images-api.nasa.gov"`
	WhereIssURL   string `env:"WHERE_ISS_URL,default=https://api.wheretheiss.at/v1/satellites/25544"`
	NasaAPIKey    string `env:"NASA_API_KEY,default=DEMO_KEY"`

	LogLevel  string `env:"LOG_LEVEL,default=info"`
	LogFormat string `env:"LOG_FORMAT,default=json"`

	Cache    CacheConfig    `env:",prefix=CACHE_"`
	Tracker  TrackerConfig  `env:",prefix=ISS_"`
	Upstream UpstreamConfig `env:",prefix=UPSTREAM_"`

	// WarmInterval is how often today's APOD and the current NEO week are prefetched.
	WarmInterval time.Duration `env:"WARM_INTERVAL,default=30m"`

	Archive ArchiveConfig `env:",prefix=ARCHIVE_"`
}

// ArchiveConfig defines snapshot retention
type ArchiveConfig struct {
	// Keep is the number of snapshots retained per source.
	Keep          int           `env:"KEEP,default=200"`
	PruneInterval time.Duration `env:"PRUNE_INTERVAL,default=1h"`
}

// CacheConfig defines the query cache policy
type CacheConfig struct {
	StaleTime  time.Duration `env:"STALE_TIME,default=60s"`
	GCTime     time.Duration `env:"GC_TIME,default=5m"`
	MaxEntries int           `env:"MAX_ENTRIES,default=512"`
}

// TrackerConfig defines the ISS polling policy
type TrackerConfig struct {
	Interval time.Duration `env:"INTERVAL,default=5s"`
	Retries  int           `env:"RETRIES,default=3"`
}

// UpstreamConfig defines transport limits shared by all upstream clients
type UpstreamConfig struct {
	Timeout time.Duration `env:"TIMEOUT,default=30s"`
	// Rate is the sustained outbound requests per second per upstream.
	Rate  float64 `env:"RATE,default=5"`
	Burst int     `env:"BURST,default=10"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig(ctx context.Context) (*AppConfig, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.NasaAPIKey == "" {
		return fmt.Errorf("NASA_API_KEY must not be empty")
	}
	if c.Cache.StaleTime < 0 || c.Cache.GCTime <= 0 {
		return fmt.Errorf("invalid cache policy: stale=%s gc=%s", c.Cache.StaleTime, c.Cache.GCTime)
	}
	if c.Tracker.Interval <= 0 {
		return fmt.Errorf("ISS_INTERVAL must be positive")
	}
	if c.Tracker.Retries < 0 {
		return fmt.Errorf("ISS_RETRIES must not be negative")
	}
	if c.Upstream.Rate <= 0 || c.Upstream.Burst <= 0 {
		return fmt.Errorf("upstream rate and burst must be positive")
	}
	if c.Archive.Keep < 1 || c.Archive.PruneInterval <= 0 {
		return fmt.Errorf("invalid archive retention: keep=%d interval=%s", c.Archive.Keep, c.Archive.PruneInterval)
	}
	return nil
}
