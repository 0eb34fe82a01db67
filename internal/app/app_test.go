package app

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mayday/internal/config"
	"mayday/internal/maintenance"
	"mayday/internal/notify"
)

func silentWAV(sampleRate, seconds int) []byte {
	dataLen := sampleRate * 2 * seconds
	buf := &bytes.Buffer{}
	w := func(v interface{}) { _ = binary.Write(buf, binary.LittleEndian, v) }

	buf.WriteString("RIFF")
	w(uint32(36 + dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	w(uint32(16))
	w(uint16(1))
	w(uint16(1))
	w(uint32(sampleRate))
	w(uint32(sampleRate * 2))
	w(uint16(2))
	w(uint16(16))
	buf.WriteString("data")
	w(uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	tmp := t.TempDir()
	music := filepath.Join(tmp, "music")

	return &config.AppConfig{
		Server:   config.ServerConfig{Host: "127.0.0.1", Port: 9090},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(tmp, "mayday.db")},
		Library: config.LibraryConfig{
			MusicDirectory:         music,
			AuthoritativeDirectory: music,
			AlbumPolicy:            config.AlbumPolicyRestrictive,
			DefaultArtist:          "五月天",
			PlaceholderReleaseDate: "1970-01-01",
		},
		Scanner: config.ScannerConfig{Workers: 2, CacheEnabled: true},
		Lyrics:  config.LyricsConfig{Directory: filepath.Join(tmp, "lyrics"), MinScore: 60},
		Queue:   config.QueueConfig{Name: "default", Topic: "scan_tasks"},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestApp_ScanLyricsReindexLifecycle(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	writeFile(t, filepath.Join(cfg.Library.MusicDirectory, "自傳", "頑固.wav"), silentWAV(8000, 1))
	writeFile(t, filepath.Join(cfg.Library.MusicDirectory, "自傳", "倔強.wav"), silentWAV(8000, 1))
	writeFile(t, filepath.Join(cfg.Library.MusicDirectory, "broken.mp3"), []byte("garbage"))
	writeFile(t, filepath.Join(cfg.Lyrics.Directory, "頑固 (Live).lrc"), []byte("失敗的人生 才是我的"))

	a, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	require.Equal(t, notify.BackendLocal, a.Sink.Backend())

	// first scan creates every song, the corrupt file included
	first, hit, err := a.Scan(ctx, cfg.Library.MusicDirectory, false)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, first.Files)
	assert.Equal(t, 3, first.Created)

	// a repeated scan is served from the cache
	_, hit, err = a.Scan(ctx, cfg.Library.MusicDirectory, false)
	require.NoError(t, err)
	assert.True(t, hit)

	// a fresh scan touches the same rows without creating any
	fresh, hit, err := a.Scan(ctx, cfg.Library.MusicDirectory, true)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Zero(t, fresh.Created)
	assert.Equal(t, 3, fresh.Updated)

	count, err := a.Repo.CountSongs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	q, ok := a.Sink.(*notify.LocalQueue)
	require.True(t, ok)
	assert.Equal(t, 3, q.Len("scan_tasks"))

	songs, err := a.Repo.ListSongs(ctx)
	require.NoError(t, err)
	byTitle := map[string]int64{}
	for _, s := range songs {
		byTitle[s.Title] = s.ID
		assert.Equal(t, "五月天", s.Artist)
		assert.Equal(t, "wuyuetian", s.ArtistPinyin)
		if s.Title != "broken" {
			require.NotNil(t, s.Duration)
			assert.InDelta(t, 1.0, *s.Duration, 0.01)
		}
	}
	require.Contains(t, byTitle, "頑固")
	require.Contains(t, byTitle, "broken")

	report, err := a.LyricsLoader(false, false).Load(ctx, cfg.Lyrics.Directory)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)

	song, err := a.Repo.GetSongByID(ctx, byTitle["頑固"])
	require.NoError(t, err)
	assert.Equal(t, "失敗的人生 才是我的", song.Lyrics)

	reindex, err := maintenance.ReindexArtists(ctx, a.Repo, a.Indexer)
	require.NoError(t, err)
	assert.Equal(t, 1, reindex.Artists)
	assert.Equal(t, int64(3), reindex.Songs)

	items, err := a.Timeline().All(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestApp_ScanMissingRootIsEmpty(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, testConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(ctx) })

	res, _, err := a.Scan(ctx, filepath.Join(t.TempDir(), "missing"), true)
	require.NoError(t, err)
	assert.Empty(t, res.Songs)
	assert.Zero(t, res.Files)
}

func TestNew_RejectsUnknownPolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.Library.AlbumPolicy = "sometimes"

	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
