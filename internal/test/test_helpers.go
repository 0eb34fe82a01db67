package test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mayday/internal/database"
	"mayday/internal/models"
)

// GetTestDB creates an isolated in-memory SQLite database with the full schema migrated
func GetTestDB(t *testing.T) (*gorm.DB, func()) {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection serializes concurrent writers instead of tripping shared-cache table locks
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.NewMigrationManager(db, nil).Migrate())

	tearDown := func() {
		_ = sqlDB.Close()
	}

	return db, tearDown
}

// CreateTestAlbum creates an album released on the given date
func CreateTestAlbum(t *testing.T, db *gorm.DB, name string, released time.Time) *models.Album {
	t.Helper()

	album := &models.Album{Name: name, ReleaseDate: released}
	require.NoError(t, db.Create(album).Error)
	return album
}

// CreateTestSong creates a song, optionally linked to an album
func CreateTestSong(t *testing.T, db *gorm.DB, title, artist string, album *models.Album) *models.Song {
	t.Helper()

	song := &models.Song{Title: title, Artist: artist}
	if album != nil {
		song.AlbumID = &album.ID
	}
	require.NoError(t, db.Create(song).Error)
	return song
}

// Date is a shorthand for a UTC calendar date
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// WaitForCondition waits for a condition to be true with timeout
func WaitForCondition(condition func() bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}

	return timeoutError{}
}

type timeoutError struct{}

func (timeoutError) Error() string {
	return "timeout waiting for condition"
}
