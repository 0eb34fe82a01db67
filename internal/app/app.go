// Package app wires configuration, storage and the reconciliation pipeline
// together for the command line tool and the worker.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mayday/internal/catalog"
	"mayday/internal/config"
	"mayday/internal/database"
	"mayday/internal/logging"
	"mayday/internal/lyrics"
	"mayday/internal/metadata"
	"mayday/internal/metrics"
	"mayday/internal/notify"
	"mayday/internal/phonetic"
	"mayday/internal/scanner"
	"mayday/internal/services"
	"mayday/internal/timeline"
	"mayday/internal/tracing"
)

// App holds every long-lived dependency of a process.
type App struct {
	Config   *config.AppConfig
	DB       *database.DatabaseManager
	Repo     *services.Repository
	Logger   *logging.Logger
	Logs     *logging.LogStorage
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Tracer   *tracing.Tracer
	Sink     notify.Sink
	Indexer  *phonetic.Indexer
	Matcher  *catalog.Matcher
	Scanner  *scanner.FileScanner
	Scans    *scanner.Cache
}

// New connects to the database, migrates it and builds the pipeline. The
// notification sink is selected here, once.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{Config: cfg}

	a.Logger = logging.InitGlobalLogger(logging.LogLevel(cfg.Logging.Level), cfg.Logging.Format, nil)
	zl := a.Logger.Zerolog()

	dbManager, err := database.NewDatabaseManager(&cfg.Database, zl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = dbManager

	if err := database.NewMigrationManager(dbManager.GetGormDB(), zl).Migrate(); err != nil {
		_ = dbManager.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	a.Logs = logging.NewLogStorage(dbManager.GetGormDB())
	if cfg.Logging.Persist {
		a.Logger = logging.InitGlobalLogger(logging.LogLevel(cfg.Logging.Level), cfg.Logging.Format, a.Logs)
	}

	a.Repo = services.NewRepository(dbManager.GetGormDB())

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.NewMetrics(a.Registry)

	if cfg.Tracing.Enabled {
		tracer, err := tracing.NewTracer(cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.UseOTLP)
		if err != nil {
			_ = dbManager.Close()
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.Tracer = tracer
	}

	policy, err := catalog.ParsePolicy(cfg.Library.AlbumPolicy)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	releaseDate, err := cfg.Library.ReleaseDate()
	if err != nil {
		_ = a.Close(ctx)
		return nil, fmt.Errorf("invalid placeholder release date: %w", err)
	}

	a.Indexer = phonetic.Default()
	a.Matcher, err = catalog.NewMatcher(a.Repo, catalog.Config{
		Policy:            policy,
		AuthoritativeRoot: cfg.Library.AuthoritativeDirectory,
		ReleaseDate:       releaseDate,
	}, catalog.WithIndexer(a.Indexer), catalog.WithMetrics(a.Metrics))
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	extractor := metadata.NewExtractor(
		metadata.WithDefaultArtist(cfg.Library.DefaultArtist),
		metadata.WithLogger(a.Logger),
	)
	a.Scanner = scanner.NewFileScanner(extractor, a.Matcher,
		scanner.WithWorkers(cfg.Scanner.Workers),
		scanner.WithRateLimit(cfg.Scanner.RateLimit),
		scanner.WithMetrics(a.Metrics),
		scanner.WithLogger(a.Logger),
	)
	a.Scans = scanner.NewCache(a.Scanner)

	a.Sink = notify.NewSink(ctx, cfg.Queue, cfg.Redis)
	return a, nil
}

// Scan publishes a best-effort notification for root and then scans it. The
// cache is bypassed when fresh is set or caching is disabled.
func (a *App) Scan(ctx context.Context, root string, fresh bool) (*scanner.ScanResult, bool, error) {
	notify.PublishScan(ctx, a.Sink, a.Config.Queue.Topic, root, a.Metrics)
	return a.Scans.Scan(ctx, root, fresh || !a.Config.Scanner.CacheEnabled)
}

// LyricsLoader builds a loader with the configured threshold.
func (a *App) LyricsLoader(overwrite, dryRun bool) *lyrics.Loader {
	return lyrics.NewLoader(a.Repo,
		lyrics.WithMatcher(lyrics.NewMatcher(a.Config.Lyrics.MinScore)),
		lyrics.WithOverwrite(overwrite),
		lyrics.WithDryRun(dryRun),
		lyrics.WithLoaderMetrics(a.Metrics),
		lyrics.WithLoaderLogger(a.Logger),
	)
}

// Timeline returns the timeline over the catalog.
func (a *App) Timeline() *timeline.Timeline {
	return timeline.New(a.Repo)
}

// Close flushes traces and releases connections.
func (a *App) Close(ctx context.Context) error {
	var firstErr error
	if a.Sink != nil {
		if err := a.Sink.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Tracer != nil {
		if err := a.Tracer.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
