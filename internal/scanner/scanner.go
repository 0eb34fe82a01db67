package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"mayday/internal/catalog"
	"mayday/internal/logging"
	"mayday/internal/metadata"
	"mayday/internal/metrics"
	"mayday/internal/tracing"
)

// Extractor reads metadata from one file and never fails.
type Extractor interface {
	Extract(path string) metadata.Metadata
}

// Reconciler maps a file onto its catalog row.
type Reconciler interface {
	Reconcile(ctx context.Context, filePath string, md metadata.Metadata) (*catalog.Result, error)
}

// FileScanner walks a directory tree and reconciles every audio file it finds
type FileScanner struct {
	extractor Extractor
	matcher   Reconciler
	workers   int
	limiter   *rate.Limiter
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// Option configures a FileScanner.
type Option func(*FileScanner)

// WithWorkers sets the number of files processed concurrently.
func WithWorkers(n int) Option {
	return func(s *FileScanner) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRateLimit caps files processed per second. Zero means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(s *FileScanner) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithMetrics records per-file outcomes and scan duration.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *FileScanner) { s.metrics = m }
}

// WithLogger sets the logger used for summaries and per-file failures.
func WithLogger(l *logging.Logger) Option {
	return func(s *FileScanner) { s.logger = l }
}

// NewFileScanner creates a new file scanner
func NewFileScanner(extractor Extractor, matcher Reconciler, opts ...Option) *FileScanner {
	s := &FileScanner{
		extractor: extractor,
		matcher:   matcher,
		workers:   4,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	return s
}

type job struct {
	index int
	path  string
}

// Scan reconciles every supported file below root. A missing root yields an
// empty result. Per-file failures are logged and counted as skipped. When ctx
// is cancelled the files finished so far are returned together with ctx.Err().
func (s *FileScanner) Scan(ctx context.Context, root string) (*ScanResult, error) {
	ctx, span := tracing.Start(ctx, "scanner.Scan", tracing.ScanTracingAttrs(root, s.workers)...)
	defer span.End()

	result := &ScanResult{Root: root, Started: time.Now()}
	log := s.logger.WithContextFields(logging.LogContext{Module: "scanner", RootPath: root})

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		log.Warn().Err(err).Msg("Scan root is not an accessible directory, nothing to scan")
		result.Duration = time.Since(result.Started)
		return result, nil
	}

	jobs := make(chan job, s.workers*2)
	outcomes := make(chan fileOutcome, s.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				outcomes <- s.processFile(ctx, j, log)
			}
		}()
	}

	// Walk directory tree
	walkDone := make(chan int, 1)
	go func() {
		defer close(jobs)
		walkDone <- s.walk(ctx, root, jobs, log)
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var collected []fileOutcome
	for o := range outcomes {
		collected = append(collected, o)
		s.tally(result, o, log)
	}
	result.Files = <-walkDone

	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })
	for _, o := range collected {
		if o.song != nil {
			result.Songs = append(result.Songs, o.song)
		}
	}

	result.Duration = time.Since(result.Started)
	s.metrics.ScanFinished(result.Duration)
	s.logger.LogScanSummary(root, result.Files, result.Created, result.Updated, result.Skipped, result.Duration)

	if err := ctx.Err(); err != nil {
		tracing.SetSpanError(ctx, err)
		return result, err
	}
	return result, nil
}

// walk feeds every supported regular file to jobs and returns how many were queued.
func (s *FileScanner) walk(ctx context.Context, root string, jobs chan<- job, log *zerolog.Logger) int {
	queued := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return filepath.SkipAll
		}
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable path")
			return nil
		}
		if d.IsDir() || !IsAudioFile(path) || !isRegularFile(path, d) {
			return nil
		}

		select {
		case jobs <- job{index: queued, path: path}:
			queued++
			return nil
		case <-ctx.Done():
			return filepath.SkipAll
		}
	})
	return queued
}

// isRegularFile accepts regular files and symlinks that point at one.
func isRegularFile(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// processFile extracts and reconciles one file. Panics are converted to errors
// so one bad file cannot take down the scan.
func (s *FileScanner) processFile(ctx context.Context, j job, log *zerolog.Logger) (out fileOutcome) {
	out.index = j.index
	out.path = j.path
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("panic while processing %s: %v", j.path, r)
		}
	}()

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			out.err = err
			return out
		}
	}

	md := s.extractor.Extract(j.path)
	res, err := s.matcher.Reconcile(ctx, j.path, md)
	if err != nil {
		out.err = err
		return out
	}

	out.song = res.Song
	out.created = res.Created
	out.albumCreated = res.AlbumCreated
	log.Debug().Str("file_path", j.path).Bool("created", res.Created).Msg("File reconciled")
	return out
}

func (s *FileScanner) tally(result *ScanResult, o fileOutcome, log *zerolog.Logger) {
	switch {
	case o.err != nil:
		result.Skipped++
		s.metrics.FileProcessed(metrics.OutcomeSkipped)
		if !errors.Is(o.err, context.Canceled) && !errors.Is(o.err, context.DeadlineExceeded) {
			log.Error().Err(o.err).Str("file_path", o.path).Msg("Failed to process file")
		}
		return
	case o.created:
		result.Created++
		s.metrics.FileProcessed(metrics.OutcomeCreated)
	default:
		result.Updated++
		s.metrics.FileProcessed(metrics.OutcomeUpdated)
	}
	if o.albumCreated {
		result.AlbumsCreated++
	}
}
