// Package catalog reconciles scanned audio files against persisted songs and
// albums without ever creating duplicates.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"mayday/internal/logging"
	"mayday/internal/metadata"
	"mayday/internal/metrics"
	"mayday/internal/models"
	"mayday/internal/phonetic"
	"mayday/internal/textmatch"
	"mayday/internal/tracing"
)

// ErrNoStore is returned when a Matcher is built without storage.
var ErrNoStore = errors.New("catalog: no store configured")

// Policy decides whether an unknown album name may create a new Album row.
type Policy string

const (
	// PolicyRestrictive creates albums only for files under the authoritative root.
	PolicyRestrictive Policy = "restrictive"
	// PolicyPermissive creates albums for any file.
	PolicyPermissive Policy = "permissive"
)

// ParsePolicy maps a configuration value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(s))) {
	case PolicyRestrictive, "":
		return PolicyRestrictive, nil
	case PolicyPermissive:
		return PolicyPermissive, nil
	default:
		return "", fmt.Errorf("unknown album policy %q", s)
	}
}

// Store is the persistence the matcher needs. Finders return (nil, nil)
// when nothing matches.
type Store interface {
	FindSongByPath(ctx context.Context, path string) (*models.Song, error)
	FindSongByIdentity(ctx context.Context, title, artist string, albumID *int64) (*models.Song, error)
	FindAlbumByName(ctx context.Context, name string) (*models.Album, error)
	ListAlbums(ctx context.Context) ([]models.Album, error)
	CreateAlbum(ctx context.Context, album *models.Album) error
	CreateSong(ctx context.Context, song *models.Song) error
	SaveSong(ctx context.Context, song *models.Song) error
}

// Config controls album creation.
type Config struct {
	Policy            Policy
	AuthoritativeRoot string
	// ReleaseDate is stamped on auto-created albums.
	ReleaseDate time.Time
}

// Result describes what Reconcile did.
type Result struct {
	Song         *models.Song
	Created      bool
	AlbumCreated bool
}

// Matcher maps a file plus its metadata onto exactly one Song row.
type Matcher struct {
	store       Store
	indexer     *phonetic.Indexer
	policy      Policy
	authRoot    string
	authRootOK  bool
	releaseDate time.Time
	locks       *keyedMutex
	metrics     *metrics.Metrics
	logger      *zerolog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithIndexer replaces the default pinyin indexer.
func WithIndexer(ix *phonetic.Indexer) Option {
	return func(m *Matcher) { m.indexer = ix }
}

// WithMetrics records album creation counts.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Matcher) { m.metrics = mt }
}

// NewMatcher creates a matcher over store.
func NewMatcher(store Store, cfg Config, opts ...Option) (*Matcher, error) {
	if store == nil {
		return nil, ErrNoStore
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyRestrictive
	}
	if cfg.ReleaseDate.IsZero() {
		cfg.ReleaseDate = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	m := &Matcher{
		store:       store,
		indexer:     phonetic.Default(),
		policy:      cfg.Policy,
		releaseDate: cfg.ReleaseDate,
		locks:       newKeyedMutex(),
		logger:      logging.WithModule("catalog"),
	}
	if strings.TrimSpace(cfg.AuthoritativeRoot) != "" {
		m.authRoot, m.authRootOK = Canonicalize(cfg.AuthoritativeRoot)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Policy returns the active album policy.
func (m *Matcher) Policy() Policy {
	return m.policy
}

// Reconcile finds or creates the Song for filePath and refreshes it from md.
// Only storage failures are returned; path problems degrade to best-effort forms.
func (m *Matcher) Reconcile(ctx context.Context, filePath string, md metadata.Metadata) (*Result, error) {
	ctx, span := tracing.Start(ctx, "catalog.Reconcile", tracing.ReconcileTracingAttrs(filePath, md.Title, md.Album)...)
	defer span.End()

	canonical, reliable := Canonicalize(filePath)

	title := md.Title
	if strings.TrimSpace(title) == "" {
		title = metadata.Stem(filePath)
	}
	artist := md.Artist
	if strings.TrimSpace(artist) == "" {
		artist = metadata.DefaultArtist
	}

	album, albumCreated, err := m.resolveAlbum(ctx, md.Album, canonical, reliable)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, err
	}
	var albumID *int64
	if album != nil {
		id := album.ID
		albumID = &id
	}

	pinyin, initial := m.indexer.Index(artist)

	unlock := m.locks.Lock(songKey(title, artist, albumID))
	defer unlock()

	song, err := m.findSong(ctx, canonical, title, artist, albumID)
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, err
	}

	created := song == nil
	if created {
		song = &models.Song{}
	}
	song.Title = title
	song.Artist = artist
	song.ArtistPinyin = pinyin
	song.ArtistInitial = initial
	song.AlbumID = albumID
	song.Album = nil
	song.Duration = md.Duration
	song.TrackNumber = md.TrackNumber
	song.OriginalPath = canonical

	if created {
		err = m.store.CreateSong(ctx, song)
	} else {
		err = m.store.SaveSong(ctx, song)
	}
	if err != nil {
		tracing.SetSpanError(ctx, err)
		return nil, err
	}

	song.Album = album
	return &Result{Song: song, Created: created, AlbumCreated: albumCreated}, nil
}

// findSong tries the canonical path first, then (title, artist, album).
func (m *Matcher) findSong(ctx context.Context, canonical, title, artist string, albumID *int64) (*models.Song, error) {
	song, err := m.store.FindSongByPath(ctx, canonical)
	if err != nil || song != nil {
		return song, err
	}
	return m.store.FindSongByIdentity(ctx, title, artist, albumID)
}

// resolveAlbum returns the album for name, creating it when the policy allows.
// A blank name means the song has no album.
func (m *Matcher) resolveAlbum(ctx context.Context, name, canonical string, reliable bool) (*models.Album, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, nil
	}
	compact := textmatch.CompactSpaces(name)

	unlock := m.locks.Lock("album\x00" + compact)
	defer unlock()

	album, err := m.store.FindAlbumByName(ctx, name)
	if err != nil || album != nil {
		return album, false, err
	}

	albums, err := m.store.ListAlbums(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range albums {
		if textmatch.CompactSpaces(albums[i].Name) == compact {
			return &albums[i], false, nil
		}
	}

	if !m.mayCreateAlbum(canonical, reliable) {
		m.logger.Debug().
			Str("album", name).
			Str("file_path", canonical).
			Msg("Unknown album outside authoritative directory, leaving song unlinked")
		return nil, false, nil
	}

	album = &models.Album{
		Name:        name,
		ReleaseDate: m.releaseDate,
		Description: "Created from scanned metadata",
	}
	if err := m.store.CreateAlbum(ctx, album); err != nil {
		return nil, false, err
	}
	m.metrics.AlbumCreated()
	m.logger.Info().Str("album", name).Int64("album_id", album.ID).Msg("Album created")
	return album, true, nil
}

func (m *Matcher) mayCreateAlbum(canonical string, reliable bool) bool {
	switch m.policy {
	case PolicyPermissive:
		return true
	case PolicyRestrictive:
		return reliable && m.authRootOK && IsWithin(m.authRoot, canonical)
	default:
		return false
	}
}

func songKey(title, artist string, albumID *int64) string {
	album := "-"
	if albumID != nil {
		album = fmt.Sprintf("%d", *albumID)
	}
	return "song\x00" + title + "\x00" + artist + "\x00" + album
}
