package lyrics

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"

	"mayday/internal/logging"
	"mayday/internal/metrics"
	"mayday/internal/models"
	"mayday/internal/services"
	"mayday/internal/test"
)

func TestMatcher_LiveSuffixMatches(t *testing.T) {
	songs := []models.Song{{ID: 1, Title: "Stubborn"}}

	song, score := NewMatcher(0).Match("Stubborn-Live", songs)
	require.NotNil(t, song)
	assert.Equal(t, int64(1), song.ID)
	assert.GreaterOrEqual(t, score, 60.0)
}

func TestMatcher_UnrelatedTextHasNoMatch(t *testing.T) {
	songs := []models.Song{{ID: 1, Title: "Stubborn"}}

	song, score := NewMatcher(0).Match("Completely Unrelated Text", songs)
	assert.Nil(t, song)
	assert.Less(t, score, 60.0)
}

func TestMatcher_TiesKeepFirstSong(t *testing.T) {
	songs := []models.Song{
		{ID: 7, Title: "倔強"},
		{ID: 8, Title: "倔強"},
	}

	song, score := NewMatcher(0).Match("倔強", songs)
	require.NotNil(t, song)
	assert.Equal(t, int64(7), song.ID)
	assert.Equal(t, 100.0, score)
}

func TestMatcher_CustomThreshold(t *testing.T) {
	songs := []models.Song{{ID: 1, Title: "Stubborn"}}

	m := NewMatcher(95)
	assert.Equal(t, 95.0, m.MinScore())

	song, _ := m.Match("Stubborn-Live", songs)
	assert.Nil(t, song)

	song, _ = NewMatcher(0).Match("anything", nil)
	assert.Nil(t, song)
}

func TestDecode(t *testing.T) {
	text, enc := Decode(append([]byte{0xEF, 0xBB, 0xBF}, []byte("  我不願 讓你一個人 \n")...))
	assert.Equal(t, "utf-8", enc)
	assert.Equal(t, "我不願 讓你一個人", text)

	gbk, err := simplifiedchinese.GBK.NewEncoder().String("倔强的歌词")
	require.NoError(t, err)
	text, enc = Decode([]byte(gbk))
	assert.Equal(t, "gbk", enc)
	assert.Equal(t, "倔强的歌词", text)

	text, enc = Decode([]byte("Caf\xe9 au lait"))
	assert.Equal(t, "latin-1", enc)
	assert.Equal(t, "Café au lait", text)
}

func TestReadFile_Missing(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.lrc"))
	assert.Error(t, err)
}

func TestIsLyricFile(t *testing.T) {
	assert.True(t, IsLyricFile("a.lrc"))
	assert.True(t, IsLyricFile("a.TXT"))
	assert.True(t, IsLyricFile("dir/a.Lyrics"))
	assert.True(t, IsLyricFile("a.lyric"))
	assert.False(t, IsLyricFile("a.mp3"))
	assert.False(t, IsLyricFile("lrc"))
}

type lyricFixture struct {
	dir      string
	repo     *services.Repository
	stubborn *models.Song
	juejiang *models.Song
	wenrou   *models.Song
}

func setupLyrics(t *testing.T) lyricFixture {
	t.Helper()
	db, tearDown := test.GetTestDB(t)
	t.Cleanup(tearDown)

	f := lyricFixture{dir: t.TempDir(), repo: services.NewRepository(db)}
	f.stubborn = test.CreateTestSong(t, db, "Stubborn", "五月天", nil)
	f.juejiang = test.CreateTestSong(t, db, "倔強", "五月天", nil)
	f.wenrou = test.CreateTestSong(t, db, "温柔", "五月天", nil)
	test.CreateTestSong(t, db, "擁抱", "五月天", nil)
	require.NoError(t, f.repo.UpdateSongLyrics(context.Background(), f.stubborn.ID, "existing"))

	files := map[string]string{
		"Stubborn-Live.lrc":   "live lyrics",
		"unrelated words.txt": "nothing",
		"倔強.lrc":              "我和我最後的倔強",
		"擁抱.txt":              "   \n\t",
		"cover.jpg":           "not lyrics",
		"live/温柔 (Live).TXT":  "走在風中 今天陽光",
	}
	for name, content := range files {
		path := filepath.Join(f.dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return f
}

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.ErrorLevel, &bytes.Buffer{})
}

func TestLoader_Load(t *testing.T) {
	f := setupLyrics(t)
	ctx := context.Background()
	m := metrics.NewMetrics(prometheus.NewRegistry())

	report, err := NewLoader(f.repo, WithLoaderMetrics(m), WithLoaderLogger(quietLogger())).Load(ctx, f.dir)
	require.NoError(t, err)

	assert.Equal(t, 5, report.Files)
	assert.Equal(t, 2, report.Matched)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.NotFound)
	assert.Equal(t, 1, report.Unreadable)
	assert.Len(t, report.Results, 5)

	song, err := f.repo.GetSongByID(ctx, f.juejiang.ID)
	require.NoError(t, err)
	assert.Equal(t, "我和我最後的倔強", song.Lyrics)

	song, err = f.repo.GetSongByID(ctx, f.wenrou.ID)
	require.NoError(t, err)
	assert.Equal(t, "走在風中 今天陽光", song.Lyrics)

	song, err = f.repo.GetSongByID(ctx, f.stubborn.ID)
	require.NoError(t, err)
	assert.Equal(t, "existing", song.Lyrics)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LyricsMatchTotal.WithLabelValues(ResultUpdated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LyricsMatchTotal.WithLabelValues(ResultSkipped)))
}

func TestLoader_DryRunPersistsNothing(t *testing.T) {
	f := setupLyrics(t)
	ctx := context.Background()

	report, err := NewLoader(f.repo, WithDryRun(true), WithLoaderLogger(quietLogger())).Load(ctx, f.dir)
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Matched)
	assert.Zero(t, report.Updated)

	song, err := f.repo.GetSongByID(ctx, f.juejiang.ID)
	require.NoError(t, err)
	assert.Empty(t, song.Lyrics)
}

func TestLoader_Overwrite(t *testing.T) {
	f := setupLyrics(t)
	ctx := context.Background()

	report, err := NewLoader(f.repo, WithOverwrite(true), WithLoaderLogger(quietLogger())).Load(ctx, f.dir)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Updated)
	assert.Zero(t, report.Skipped)

	song, err := f.repo.GetSongByID(ctx, f.stubborn.ID)
	require.NoError(t, err)
	assert.Equal(t, "live lyrics", song.Lyrics)
}

func TestLoader_SecondFileForSameSongIsSkipped(t *testing.T) {
	f := setupLyrics(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, "倔強.txt"), []byte("second copy"), 0o644))

	report, err := NewLoader(f.repo, WithLoaderLogger(quietLogger())).Load(context.Background(), f.dir)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)

	song, err := f.repo.GetSongByID(context.Background(), f.juejiang.ID)
	require.NoError(t, err)
	assert.Equal(t, "我和我最後的倔強", song.Lyrics)
}

func TestLoader_MissingDirectory(t *testing.T) {
	loader := NewLoader(nil, WithLoaderLogger(quietLogger()))

	_, err := loader.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.ErrorIs(t, err, ErrLyricsDirNotFound)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = loader.Load(context.Background(), file)
	assert.ErrorIs(t, err, ErrLyricsDirNotFound)
}

func TestLoader_EmptyDirectorySkipsStore(t *testing.T) {
	report, err := NewLoader(nil, WithLoaderLogger(quietLogger())).Load(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, report.Files)
}

type failingStore struct{}

func (failingStore) ListSongs(context.Context) ([]models.Song, error) {
	return []models.Song{{ID: 1, Title: "倔強"}}, nil
}

func (failingStore) UpdateSongLyrics(context.Context, int64, string) error {
	return errors.New("disk full")
}

func TestLoader_StorageErrorStopsLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "倔強.lrc"), []byte("lyrics"), 0o644))

	_, err := NewLoader(failingStore{}, WithLoaderLogger(quietLogger())).Load(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
