// Package metadata reads the catalog-relevant fields of an audio file.
//
// Extraction never fails: unreadable or non-standard files come back as a
// degraded record keyed by the file name so they can still be cataloged.
package metadata

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog"

	"mayday/internal/logging"
)

// DefaultArtist is used when a file carries no artist tag.
const DefaultArtist = "五月天"

// Metadata is the result of reading one file. Album is empty when unknown.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	TrackNumber *int
	Duration    *float64 // seconds
	Degraded    bool
}

// Field lookup order: container-native frames first, then the generic name.
var (
	titleKeys  = []string{"TIT2", "TT2", "TITLE"}
	artistKeys = []string{"TPE1", "TP1", "ARTIST"}
	albumKeys  = []string{"TALB", "TAL", "ALBUM"}
	trackKeys  = []string{"TRCK", "TRK", "TRACKNUMBER"}
)

// keywords in a parser error that point at an unusual container rather than a broken file
var nonStandardKeywords = []string{"sync", "mpeg", "no tags", "unsupported", "header", "format"}

// Extractor reads tags and play length.
type Extractor struct {
	reader        TagReader
	probes        map[string]DurationProbe
	defaultArtist string
	logger        *logging.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTagReader replaces the dhowden/tag reader.
func WithTagReader(r TagReader) Option {
	return func(e *Extractor) { e.reader = r }
}

// WithProbes replaces the per-extension duration probes.
func WithProbes(p map[string]DurationProbe) Option {
	return func(e *Extractor) { e.probes = p }
}

// WithDefaultArtist sets the artist used when no tag is present.
func WithDefaultArtist(artist string) Option {
	return func(e *Extractor) {
		if strings.TrimSpace(artist) != "" {
			e.defaultArtist = artist
		}
	}
}

// WithLogger sets the logger used for classified warnings.
func WithLogger(l *logging.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// NewExtractor creates an extractor with the default readers.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		reader:        DhowdenReader{},
		probes:        DefaultProbes(),
		defaultArtist: DefaultArtist,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.GetGlobalLogger()
	}
	return e
}

// Extract reads path. It never returns an error; failures produce a
// degraded record and a classified warning.
func (e *Extractor) Extract(path string) Metadata {
	tags, err := e.reader.Read(path)
	noTags := errors.Is(err, tag.ErrNoTagsFound)
	if err != nil && !noTags {
		return e.degrade(path, err)
	}
	if tags == nil {
		tags = Tags{}
	}

	probe := probeFor(e.probes, path)
	if noTags && probe == nil {
		// nothing else would ever open the container
		if checker, ok := e.reader.(ContainerChecker); ok {
			if cerr := checker.Check(path); cerr != nil {
				return e.degrade(path, cerr)
			}
		}
	}

	var duration *float64
	if probe != nil {
		secs, perr := probe(path)
		switch {
		case perr == nil:
			duration = &secs
		case noTags || tags.Len() == 0:
			// neither tags nor audio frames could be read
			return e.degrade(path, perr)
		default:
			e.debug().Str("file_path", path).Err(perr).Msg("Duration unavailable")
		}
	}

	md := Metadata{
		Title:    firstValue(tags, titleKeys),
		Artist:   firstValue(tags, artistKeys),
		Album:    strings.TrimSpace(firstValue(tags, albumKeys)),
		Duration: duration,
	}
	if md.Title == "" {
		md.Title = Stem(path)
	}
	if md.Artist == "" {
		md.Artist = e.defaultArtist
	}
	if raw := firstValue(tags, trackKeys); raw != "" {
		md.TrackNumber = ParseTrackNumber(raw)
	}
	return md
}

func (e *Extractor) debug() *zerolog.Event {
	return e.logger.Zerolog().Debug()
}

func (e *Extractor) degrade(path string, err error) Metadata {
	e.logger.LogMetadataWarning(path, Classify(err), err)
	return Minimal(path, e.defaultArtist)
}

// Minimal is the record used for files whose tags cannot be read.
func Minimal(path, artist string) Metadata {
	return Metadata{
		Title:    Stem(path),
		Artist:   artist,
		Degraded: true,
	}
}

// Classify labels a parser error as a non-standard container or a plain failure.
func Classify(err error) string {
	if err == nil {
		return logging.MetadataFailed
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range nonStandardKeywords {
		if strings.Contains(msg, kw) {
			return logging.MetadataNonStandard
		}
	}
	return logging.MetadataFailed
}

// ParseTrackNumber parses "N" or "N/M" and returns N, or nil when unparseable.
func ParseTrackNumber(raw string) *int {
	num := raw
	if i := strings.IndexByte(raw, '/'); i >= 0 {
		num = raw[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(num))
	if err != nil {
		return nil
	}
	return &n
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func firstValue(tags TagContainer, keys []string) string {
	for _, k := range keys {
		if v, ok := tags.Get(k); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
