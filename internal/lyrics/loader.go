package lyrics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mayday/internal/logging"
	"mayday/internal/metrics"
	"mayday/internal/models"
	"mayday/internal/tracing"
)

// ErrLyricsDirNotFound is returned when the lyric root is missing or not a directory.
var ErrLyricsDirNotFound = errors.New("lyrics directory not found")

// Per-file outcomes.
const (
	ResultUpdated    = "updated"
	ResultPreview    = "preview"
	ResultSkipped    = "skipped"
	ResultNotFound   = "not_found"
	ResultUnreadable = "unreadable"
)

// Extensions lists the lyric file extensions, compared case-insensitively.
var Extensions = map[string]bool{
	".txt":    true,
	".lrc":    true,
	".lyric":  true,
	".lyrics": true,
}

// IsLyricFile reports whether path has a lyric extension.
func IsLyricFile(path string) bool {
	return Extensions[strings.ToLower(filepath.Ext(path))]
}

// Store is the storage the loader reads songs from and writes lyrics to.
type Store interface {
	ListSongs(ctx context.Context) ([]models.Song, error)
	UpdateSongLyrics(ctx context.Context, id int64, lyrics string) error
}

// FileResult describes what happened to one lyric file.
type FileResult struct {
	Path     string
	SongID   int64
	Title    string
	Score    float64
	Encoding string
	Chars    int
	Outcome  string
}

// Report summarizes a lyric load.
type Report struct {
	Dir        string
	DryRun     bool
	Files      int
	Matched    int
	Updated    int
	Skipped    int
	NotFound   int
	Unreadable int
	Results    []FileResult
}

// Loader attaches lyric files to catalog songs.
type Loader struct {
	store     Store
	matcher   *Matcher
	overwrite bool
	dryRun    bool
	metrics   *metrics.Metrics
	logger    *logging.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithOverwrite replaces lyrics that are already stored.
func WithOverwrite(overwrite bool) LoaderOption {
	return func(l *Loader) { l.overwrite = overwrite }
}

// WithDryRun matches and reads files without persisting anything.
func WithDryRun(dryRun bool) LoaderOption {
	return func(l *Loader) { l.dryRun = dryRun }
}

// WithMatcher overrides the default matcher.
func WithMatcher(m *Matcher) LoaderOption {
	return func(l *Loader) {
		if m != nil {
			l.matcher = m
		}
	}
}

// WithLoaderMetrics records load outcomes on m.
func WithLoaderMetrics(m *metrics.Metrics) LoaderOption {
	return func(l *Loader) { l.metrics = m }
}

// WithLoaderLogger sets the logger for per-file match lines. The global logger is the default.
func WithLoaderLogger(lg *logging.Logger) LoaderOption {
	return func(l *Loader) { l.logger = lg }
}

// NewLoader creates a loader. Without options it persists and never overwrites.
func NewLoader(store Store, opts ...LoaderOption) *Loader {
	l := &Loader{
		store:   store,
		matcher: NewMatcher(0),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logging.GetGlobalLogger()
	}
	return l
}

// Load matches every lyric file below dir to a song and stores its content.
// Songs that already carry lyrics are skipped unless overwrite is set.
func (l *Loader) Load(ctx context.Context, dir string) (*Report, error) {
	ctx, span := tracing.Start(ctx, "lyrics.Load", tracing.LyricsTracingAttrs(dir, l.dryRun, l.overwrite)...)
	defer span.End()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrLyricsDirNotFound, dir)
	}

	files, err := collectFiles(ctx, dir)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, err
	}

	report := &Report{Dir: dir, DryRun: l.dryRun, Files: len(files)}
	if len(files) == 0 {
		return report, nil
	}

	songs, err := l.store.ListSongs(ctx)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res, err := l.loadFile(ctx, path, songs)
		if err != nil {
			tracing.SetSpanError(ctx, err)
			return report, err
		}
		report.add(res)
		l.metrics.LyricResult(res.Outcome)
		l.logger.LogLyricMatch(res.Path, res.Outcome, res.SongID, res.Score)
	}

	return report, nil
}

func (l *Loader) loadFile(ctx context.Context, path string, songs []models.Song) (FileResult, error) {
	res := FileResult{Path: path}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	song, score := l.matcher.Match(stem, songs)
	res.Score = score
	if song == nil {
		res.Outcome = ResultNotFound
		return res, nil
	}
	res.SongID = song.ID
	res.Title = song.Title

	if song.HasLyrics() && !l.overwrite {
		res.Outcome = ResultSkipped
		return res, nil
	}

	text, enc, err := ReadFile(path)
	if err != nil || text == "" {
		res.Outcome = ResultUnreadable
		return res, nil
	}
	res.Encoding = enc
	res.Chars = len([]rune(text))

	if l.dryRun {
		res.Outcome = ResultPreview
		return res, nil
	}

	if err := l.store.UpdateSongLyrics(ctx, song.ID, text); err != nil {
		return res, fmt.Errorf("failed to store lyrics for song %d: %w", song.ID, err)
	}
	// later files matching the same song see the stored lyrics
	song.Lyrics = text
	res.Outcome = ResultUpdated
	return res, nil
}

func (r *Report) add(res FileResult) {
	r.Results = append(r.Results, res)
	switch res.Outcome {
	case ResultUpdated:
		r.Matched++
		r.Updated++
	case ResultPreview:
		r.Matched++
	case ResultSkipped:
		r.Skipped++
	case ResultNotFound:
		r.NotFound++
	case ResultUnreadable:
		r.Unreadable++
	}
}

// collectFiles returns lyric files below dir in lexical walk order.
func collectFiles(ctx context.Context, dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			return nil
		}
		if !d.IsDir() && IsLyricFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
