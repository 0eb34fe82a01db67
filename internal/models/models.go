package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Album represents the albums table
type Album struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	APIKey      uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"api_key"`
	Name        string    `gorm:"size:200;not null;index" json:"name"`
	ReleaseDate time.Time `gorm:"not null" json:"release_date"`
	CoverImage  string    `gorm:"size:500" json:"cover_image"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Songs []Song `gorm:"foreignKey:AlbumID" json:"songs,omitempty"`
}

func (Album) TableName() string {
	return "albums"
}

// BeforeCreate sets the API key before creating an album
func (a *Album) BeforeCreate(tx *gorm.DB) error {
	if a.APIKey == uuid.Nil {
		a.APIKey = uuid.New()
	}
	return nil
}

// Song represents the songs table. AlbumID is nil for unlinked songs.
type Song struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	APIKey        uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"api_key"`
	Title         string    `gorm:"size:200;not null;index:idx_songs_identity,priority:1" json:"title"`
	Artist        string    `gorm:"size:100;not null;index:idx_songs_identity,priority:2" json:"artist"`
	ArtistPinyin  string    `gorm:"size:200" json:"artist_pinyin"`
	ArtistInitial string    `gorm:"size:1;index" json:"artist_initial"`
	AlbumID       *int64    `gorm:"index:idx_songs_identity,priority:3" json:"album_id"`
	Album         *Album    `gorm:"foreignKey:AlbumID" json:"album,omitempty"`
	FilePath      string    `gorm:"size:500" json:"file_path"` // uploaded copy, if any
	OriginalPath  string    `gorm:"size:500;index" json:"original_path"`
	Duration      *float64  `json:"duration"` // seconds
	TrackNumber   *int      `json:"track_number"`
	Lyrics        string    `gorm:"type:text" json:"lyrics"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Song) TableName() string {
	return "songs"
}

// BeforeCreate sets the API key before creating a song
func (s *Song) BeforeCreate(tx *gorm.DB) error {
	if s.APIKey == uuid.Nil {
		s.APIKey = uuid.New()
	}
	return nil
}

// HasLyrics reports whether the song already carries non-blank lyrics.
func (s *Song) HasLyrics() bool {
	return strings.TrimSpace(s.Lyrics) != ""
}

// Tour represents the tours table. EndDate is nil while a tour is open-ended.
type Tour struct {
	ID          int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string     `gorm:"size:200;not null" json:"name"`
	StartDate   time.Time  `gorm:"not null;index" json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Description string     `gorm:"type:text" json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Venues []TourVenue `gorm:"foreignKey:TourID" json:"venues,omitempty"`
}

func (Tour) TableName() string {
	return "tours"
}

// TourVenue represents a single stop of a tour
type TourVenue struct {
	ID     int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TourID int64     `gorm:"not null;index" json:"tour_id"`
	Name   string    `gorm:"size:200;not null" json:"name"`
	Date   time.Time `gorm:"not null" json:"date"`
	City   string    `gorm:"size:100" json:"city"`
}

func (TourVenue) TableName() string {
	return "tour_venues"
}

// Quote represents the quotes table
type Quote struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Author    string    `gorm:"size:100" json:"author"`
	Source    string    `gorm:"size:200" json:"source"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Quote) TableName() string {
	return "quotes"
}

// Image represents the images table
type Image struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Path      string    `gorm:"size:500;not null" json:"path"`
	Caption   string    `gorm:"type:text" json:"caption"`
	Date      time.Time `gorm:"not null;index" json:"date"`
	AlbumID   *int64    `gorm:"index" json:"album_id"`
	TourID    *int64    `gorm:"index" json:"tour_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Image) TableName() string {
	return "images"
}
