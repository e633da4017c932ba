// Main entry point for the NASA explorer service
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nasa-explorer/internal/cache"
	"nasa-explorer/internal/clients"
	"nasa-explorer/internal/config"
	"nasa-explorer/internal/domain"
	"nasa-explorer/internal/events"
	"nasa-explorer/internal/handlers"
	"nasa-explorer/internal/logging"
	"nasa-explorer/internal/repo"
	"nasa-explorer/internal/services"
	"nasa-explorer/internal/tracker"
	"nasa-explorer/internal/views"

	"github.com/gin-gonic/gin"
	"github.com/thejerf/suture/v4"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: os.Stderr})
	logging.Info().Msg("Configuration loaded successfully")

	// Initialize clients
	upstream := func(source string, retries int) clients.Options {
		return clients.Options{
			Source:  source,
			Timeout: cfg.Upstream.Timeout,
			Retries: retries,
			Rate:    cfg.Upstream.Rate,
			Burst:   cfg.Upstream.Burst,
		}
	}
	nasaClient := clients.NewNasaClient(cfg.NasaAPIURL, cfg.NasaAPIKey, upstream("nasa", 0))
	imagesClient := clients.NewImagesClient(cfg.NasaImagesURL, upstream("nasa-images", 0))
	issClient := clients.NewIssClient(cfg.WhereIssURL, upstream("iss", cfg.Tracker.Retries))

	qc := cache.New(cache.Policy{
		StaleTime:  cfg.Cache.StaleTime,
		GCTime:     cfg.Cache.GCTime,
		MaxEntries: cfg.Cache.MaxEntries,
	})

	var (
		archive  services.Archive
		history  services.IssHistory
		pruner   *services.Pruner
		trackerO []tracker.Option
	)

	// Optional database: ISS history and snapshot archive
	if cfg.DatabaseURL != "" {
		pool, err := repo.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logging.Fatal().Err(err).Msg("Unable to connect to database")
		}
		defer pool.Close()

		if err := repo.InitDB(ctx, pool); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize database")
		}
		logging.Info().Msg("Database schema initialized")

		issRepo := repo.NewIssRepo(pool)
		snapshots := repo.NewSnapshotRepo(pool)
		archive, history = snapshots, issRepo
		pruner = services.NewPruner(snapshots, cfg.Archive.Keep, cfg.Archive.PruneInterval)

		sourceURL := issClient.BaseURL()
		trackerO = append(trackerO, tracker.WithSink("postgres", tracker.SinkFunc(
			func(ctx context.Context, _ domain.ISSPosition, raw []byte) error {
				return issRepo.InsertLog(ctx, sourceURL, raw)
			})))
	} else {
		logging.Warn().Msg("DATABASE_URL not set, running without history and archive")
	}

	// Optional NATS fan-out of accepted positions
	if cfg.NatsURL != "" {
		pub, err := events.NewPublisher(events.Config{URL: cfg.NatsURL, Subject: cfg.NatsSubject})
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer pub.Close()
		trackerO = append(trackerO, tracker.WithSink("nats", pub))
		logging.Info().Str("subject", pub.Subject()).Msg("Publishing ISS positions to NATS")
	}

	iss, err := tracker.New(issClient, cfg.Tracker.Interval, trackerO...)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid ISS tracker configuration")
	}

	// Initialize services
	apodService := services.NewApodService(nasaClient, qc, archive)
	asteroidService := services.NewAsteroidService(nasaClient, qc, archive)
	handler := handlers.NewHandler(handlers.Services{
		Apod:      apodService,
		Gallery:   services.NewGalleryService(imagesClient, qc),
		Rovers:    services.NewRoverService(nasaClient, qc),
		Asteroids: asteroidService,
		Iss:       services.NewIssService(iss, history),
		Archive:   services.NewArchiveService(archive),
		Cache:     qc,
	})

	// Setup HTTP server
	renderer, err := views.NewRenderer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to parse templates")
	}
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler, renderer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Background services
	sup := newSupervisor()
	sup.Add(iss)
	sup.Add(qc)
	sup.Add(services.NewWarmer(apodService, asteroidService, cfg.WarmInterval))
	if pruner != nil {
		sup.Add(pruner)
	}
	sup.Add(&httpService{server: server})

	logging.Info().Str("addr", server.Addr).Msg("nasa-explorer listening")
	if err := sup.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor stopped with error")
	}

	if unstopped, err := sup.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	logging.Info().Msg("Shutdown complete")
}

func newSupervisor() *suture.Supervisor {
	log := logging.With("supervisor")
	return suture.New("nasa-explorer", suture.Spec{
		EventHook: func(ev suture.Event) {
			log.Warn().Fields(ev.Map()).Msg(ev.String())
		},
		Timeout: shutdownTimeout,
	})
}

// httpService runs the HTTP server under the supervisor
type httpService struct {
	server *http.Server
}

func (s *httpService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return ctx.Err()
	}
}

func (s *httpService) String() string {
	return "http-server"
}
