package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"mayday/internal/app"
	"mayday/internal/capacity"
	"mayday/internal/config"
	"mayday/internal/health"
	"mayday/internal/jobs"
	"mayday/internal/logging"
	"mayday/internal/middleware"
	"mayday/internal/notify"
)

// WorkerServer consumes scan tasks, runs scheduled rescans and serves health
// and metrics endpoints.
type WorkerServer struct {
	app   *app.App
	srv   *asynq.Server
	mux   *asynq.ServeMux
	cron  *cron.Cron
	http  *fiber.App
	scans *jobs.ScanJobManager
	log   *zerolog.Logger
}

// NewWorkerServer creates a new worker server
func NewWorkerServer(ctx context.Context) (*WorkerServer, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	w := &WorkerServer{
		app:   a,
		cron:  cron.New(),
		scans: jobs.NewScanJobManager(a.Scans, a.Sink, cfg.Queue, a.Metrics, a.Logger),
		log:   logging.WithModule("worker"),
	}

	if a.Sink.Backend() == notify.BackendAsynq {
		w.srv = asynq.NewServer(notify.RedisOpt(cfg.Redis), asynq.Config{
			Queues:      map[string]int{cfg.Queue.Name: 1},
			Concurrency: cfg.Scanner.Workers,
		})
		w.mux = asynq.NewServeMux()
		w.scans.RegisterScanTasks(w.mux)
	}

	if cfg.Scanner.Schedule != "" {
		if _, err := w.scans.ScheduleRescan(w.cron, cfg.Scanner.Schedule, cfg.Library.MusicDirectory); err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
	}

	checks := health.Checks{
		DB:          health.DBCheck(a.DB),
		Capacity:    capacity.NewProbe(a.Metrics),
		LibraryPath: cfg.Library.MusicDirectory,
	}
	if cfg.Queue.Enabled {
		checks.Redis = health.RedisCheck(cfg.Redis)
	}
	w.http = fiber.New(fiber.Config{DisableStartupMessage: true, ErrorHandler: health.ErrorHandler})
	w.http.Use(middleware.NewHTTPMetrics(a.Registry).Handler())
	w.http.Use(middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig()))
	health.RegisterHealthRoutes(w.http, checks, a.Metrics)
	health.RegisterMetricsRoute(w.http, a.Registry)

	return w, nil
}

// Start starts every component; it returns once they are running.
func (w *WorkerServer) Start(errCh chan<- error) error {
	cfg := w.app.Config

	if w.srv != nil {
		if err := w.srv.Start(w.mux); err != nil {
			return fmt.Errorf("failed to start worker server: %w", err)
		}
		w.log.Info().Str("queue", cfg.Queue.Name).Msg("Consuming scan tasks")
	} else {
		w.log.Info().Msg("Queue disabled or unreachable, scheduled rescans run inline")
	}

	w.cron.Start()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		if err := w.http.Listen(addr); err != nil {
			errCh <- err
		}
	}()
	w.log.Info().Str("addr", addr).Msg("Serving /healthz and /metrics")
	return nil
}

// Shutdown gracefully shuts down the worker server
func (w *WorkerServer) Shutdown(ctx context.Context) {
	w.log.Info().Msg("Shutting down worker server")

	w.scans.Stop()
	<-w.cron.Stop().Done()
	if w.srv != nil {
		w.srv.Shutdown()
	}
	if err := w.http.ShutdownWithContext(ctx); err != nil {
		w.log.Warn().Err(err).Msg("HTTP shutdown failed")
	}
	if err := w.app.Close(ctx); err != nil {
		w.log.Warn().Err(err).Msg("Close failed")
	}
}

func main() {
	ctx := context.Background()

	worker, err := NewWorkerServer(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create worker server:", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	if err := worker.Start(errCh); err != nil {
		worker.Shutdown(ctx)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exit := 0
	select {
	case sig := <-sigCh:
		worker.log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errCh:
		worker.log.Error().Err(err).Msg("HTTP server error")
		exit = 1
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	worker.Shutdown(shutdownCtx)
	os.Exit(exit)
}
