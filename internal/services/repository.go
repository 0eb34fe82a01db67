package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"mayday/internal/models"
)

// ErrNotFound is returned by lookups by primary key when the row does not exist.
// Finder methods used during reconciliation return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// Repository handles database operations for the catalog
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository instance
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// DB exposes the underlying handle for health checks
func (r *Repository) DB() *gorm.DB {
	return r.db
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// first runs a First query and maps a missing row to (false, nil).
func first(tx *gorm.DB, dest interface{}) (bool, error) {
	err := tx.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Album operations

// FindAlbumByName returns the album with exactly this name, or nil
func (r *Repository) FindAlbumByName(ctx context.Context, name string) (*models.Album, error) {
	var album models.Album
	found, err := first(r.conn(ctx).Where("name = ?", name), &album)
	if err != nil {
		return nil, errors.Wrapf(err, "find album %q", name)
	}
	if !found {
		return nil, nil
	}
	return &album, nil
}

// ListAlbums returns every album ordered by id
func (r *Repository) ListAlbums(ctx context.Context) ([]models.Album, error) {
	var albums []models.Album
	if err := r.conn(ctx).Order("id ASC").Find(&albums).Error; err != nil {
		return nil, errors.Wrap(err, "list albums")
	}
	return albums, nil
}

// CreateAlbum inserts a new album
func (r *Repository) CreateAlbum(ctx context.Context, album *models.Album) error {
	return errors.Wrapf(r.conn(ctx).Create(album).Error, "create album %q", album.Name)
}

// GetAlbumByID loads an album with its songs
func (r *Repository) GetAlbumByID(ctx context.Context, id int64) (*models.Album, error) {
	var album models.Album
	found, err := first(r.conn(ctx).Preload("Songs").Where("id = ?", id), &album)
	if err != nil {
		return nil, errors.Wrapf(err, "get album %d", id)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &album, nil
}

// Song operations

// FindSongByPath returns the song whose original path matches exactly, or nil
func (r *Repository) FindSongByPath(ctx context.Context, path string) (*models.Song, error) {
	var song models.Song
	found, err := first(r.conn(ctx).Where("original_path = ?", path), &song)
	if err != nil {
		return nil, errors.Wrapf(err, "find song by path %q", path)
	}
	if !found {
		return nil, nil
	}
	return &song, nil
}

// FindSongByIdentity returns the song matching (title, artist, album), or nil.
// A nil albumID matches only unlinked songs.
func (r *Repository) FindSongByIdentity(ctx context.Context, title, artist string, albumID *int64) (*models.Song, error) {
	q := r.conn(ctx).Where("title = ? AND artist = ?", title, artist)
	if albumID == nil {
		q = q.Where("album_id IS NULL")
	} else {
		q = q.Where("album_id = ?", *albumID)
	}

	var song models.Song
	found, err := first(q, &song)
	if err != nil {
		return nil, errors.Wrapf(err, "find song %q by %q", title, artist)
	}
	if !found {
		return nil, nil
	}
	return &song, nil
}

// CreateSong inserts a new song
func (r *Repository) CreateSong(ctx context.Context, song *models.Song) error {
	return errors.Wrapf(r.conn(ctx).Create(song).Error, "create song %q", song.Title)
}

// SaveSong writes every column of an existing song
func (r *Repository) SaveSong(ctx context.Context, song *models.Song) error {
	return errors.Wrapf(r.conn(ctx).Omit("Album").Save(song).Error, "save song %d", song.ID)
}

// GetSongByID loads a song with its album
func (r *Repository) GetSongByID(ctx context.Context, id int64) (*models.Song, error) {
	var song models.Song
	found, err := first(r.conn(ctx).Preload("Album").Where("id = ?", id), &song)
	if err != nil {
		return nil, errors.Wrapf(err, "get song %d", id)
	}
	if !found {
		return nil, ErrNotFound
	}
	return &song, nil
}

// ListSongs returns every song with its album, ordered by id
func (r *Repository) ListSongs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := r.conn(ctx).Preload("Album").Order("id ASC").Find(&songs).Error; err != nil {
		return nil, errors.Wrap(err, "list songs")
	}
	return songs, nil
}

// ListArtists returns the distinct non-blank artist names
func (r *Repository) ListArtists(ctx context.Context) ([]string, error) {
	var artists []string
	err := r.conn(ctx).Model(&models.Song{}).
		Distinct("artist").
		Order("artist ASC").
		Pluck("artist", &artists).Error
	if err != nil {
		return nil, errors.Wrap(err, "list artists")
	}

	out := artists[:0]
	for _, a := range artists {
		if strings.TrimSpace(a) != "" {
			out = append(out, a)
		}
	}
	return out, nil
}

// UpdateArtistIndex sets the transliteration and bucket of every song by artist
func (r *Repository) UpdateArtistIndex(ctx context.Context, artist, pinyin, initial string) (int64, error) {
	res := r.conn(ctx).Model(&models.Song{}).
		Where("artist = ?", artist).
		Updates(map[string]interface{}{
			"artist_pinyin":  pinyin,
			"artist_initial": initial,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "update artist index for %q", artist)
	}
	return res.RowsAffected, nil
}

// UpdateSongLyrics replaces the lyrics of a single song
func (r *Repository) UpdateSongLyrics(ctx context.Context, id int64, lyrics string) error {
	res := r.conn(ctx).Model(&models.Song{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"lyrics":     lyrics,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update lyrics for song %d", id)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountSongs returns the number of songs
func (r *Repository) CountSongs(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Song{}).Count(&n).Error
	return n, errors.Wrap(err, "count songs")
}

// CountAlbums returns the number of albums
func (r *Repository) CountAlbums(ctx context.Context) (int64, error) {
	var n int64
	err := r.conn(ctx).Model(&models.Album{}).Count(&n).Error
	return n, errors.Wrap(err, "count albums")
}

// Timeline operations

// AlbumsReleasedBetween returns albums whose release date falls within [from, to]
func (r *Repository) AlbumsReleasedBetween(ctx context.Context, from, to time.Time) ([]models.Album, error) {
	var albums []models.Album
	err := r.conn(ctx).Where("release_date >= ? AND release_date <= ?", from, to).Find(&albums).Error
	return albums, errors.Wrap(err, "albums released between")
}

// ListTours returns every tour with its venues
func (r *Repository) ListTours(ctx context.Context) ([]models.Tour, error) {
	var tours []models.Tour
	err := r.conn(ctx).Preload("Venues", func(db *gorm.DB) *gorm.DB {
		return db.Order("date ASC")
	}).Find(&tours).Error
	return tours, errors.Wrap(err, "list tours")
}

// ToursOverlapping returns tours that started by `to` and had not ended before `from`.
// Tours without an end date are still running and always overlap once started.
func (r *Repository) ToursOverlapping(ctx context.Context, from, to time.Time) ([]models.Tour, error) {
	var tours []models.Tour
	err := r.conn(ctx).Preload("Venues", func(db *gorm.DB) *gorm.DB {
		return db.Order("date ASC")
	}).
		Where("start_date <= ?", to).
		Where("end_date >= ? OR end_date IS NULL", from).
		Find(&tours).Error
	return tours, errors.Wrap(err, "tours overlapping")
}

// ListQuotes returns every quote
func (r *Repository) ListQuotes(ctx context.Context) ([]models.Quote, error) {
	var quotes []models.Quote
	err := r.conn(ctx).Find(&quotes).Error
	return quotes, errors.Wrap(err, "list quotes")
}

// QuotesBetween returns quotes dated within [from, to]
func (r *Repository) QuotesBetween(ctx context.Context, from, to time.Time) ([]models.Quote, error) {
	var quotes []models.Quote
	err := r.conn(ctx).Where("date >= ? AND date <= ?", from, to).Find(&quotes).Error
	return quotes, errors.Wrap(err, "quotes between")
}

// ListImages returns every image
func (r *Repository) ListImages(ctx context.Context) ([]models.Image, error) {
	var images []models.Image
	err := r.conn(ctx).Find(&images).Error
	return images, errors.Wrap(err, "list images")
}

// ImagesBetween returns images dated within [from, to]
func (r *Repository) ImagesBetween(ctx context.Context, from, to time.Time) ([]models.Image, error) {
	var images []models.Image
	err := r.conn(ctx).Where("date >= ? AND date <= ?", from, to).Find(&images).Error
	return images, errors.Wrap(err, "images between")
}
