package scanner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mayday/internal/catalog"
	"mayday/internal/logging"
	"mayday/internal/metadata"
	"mayday/internal/metrics"
	"mayday/internal/models"
	"mayday/internal/services"
	"mayday/internal/test"
)

func quietLogger() *logging.Logger {
	return logging.NewLogger(logging.ErrorLevel, &bytes.Buffer{})
}

// stemExtractor titles every file after its name and files it under its directory.
type stemExtractor struct {
	panicOn string
}

func (e stemExtractor) Extract(path string) metadata.Metadata {
	if e.panicOn != "" && filepath.Base(path) == e.panicOn {
		panic("decoder exploded")
	}
	return metadata.Metadata{
		Title:  metadata.Stem(path),
		Artist: "五月天",
		Album:  filepath.Base(filepath.Dir(path)),
	}
}

type fakeReconciler struct {
	mu     sync.Mutex
	failOn string
	seen   []string
}

func (f *fakeReconciler) Reconcile(_ context.Context, path string, md metadata.Metadata) (*catalog.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, path)
	f.mu.Unlock()
	if filepath.Base(path) == f.failOn {
		return nil, errors.New("storage unavailable")
	}
	return &catalog.Result{Song: &models.Song{Title: md.Title, OriginalPath: path}, Created: true}, nil
}

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
	}
}

func titles(songs []*models.Song) []string {
	out := make([]string, 0, len(songs))
	for _, s := range songs {
		out = append(out, s.Title)
	}
	sort.Strings(out)
	return out
}

func newRepoScanner(t *testing.T, root string, ex Extractor, opts ...Option) (*FileScanner, *services.Repository) {
	t.Helper()
	db, tearDown := test.GetTestDB(t)
	t.Cleanup(tearDown)

	repo := services.NewRepository(db)
	m, err := catalog.NewMatcher(repo, catalog.Config{Policy: catalog.PolicyRestrictive, AuthoritativeRoot: root})
	require.NoError(t, err)

	opts = append([]Option{WithLogger(quietLogger()), WithWorkers(4)}, opts...)
	return NewFileScanner(ex, m, opts...), repo
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("/a/b.MP3"))
	assert.True(t, IsAudioFile("x.Flac"))
	assert.True(t, IsAudioFile("x.m4a"))
	assert.False(t, IsAudioFile("x.txt"))
	assert.False(t, IsAudioFile("mp3"))
}

func TestScan_MissingRoot(t *testing.T) {
	s := NewFileScanner(stemExtractor{}, &fakeReconciler{}, WithLogger(quietLogger()))

	res, err := s.Scan(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, res.Songs)
	assert.Zero(t, res.Files)
}

func TestScan_FiltersAndRecurses(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"A/one.MP3",
		"A/two.flac",
		"B/deep/three.Wav",
		"B/cover.jpg",
		"notes.txt",
	)
	rec := &fakeReconciler{}
	s := NewFileScanner(stemExtractor{}, rec, WithLogger(quietLogger()), WithWorkers(2))

	res, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, []string{"one", "three", "two"}, titles(res.Songs))
}

func TestScan_ResultsFollowTraversalOrder(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3", "f.mp3")
	s := NewFileScanner(stemExtractor{}, &fakeReconciler{}, WithLogger(quietLogger()), WithWorkers(4))

	res, err := s.Scan(context.Background(), root)
	require.NoError(t, err)

	got := make([]string, 0, len(res.Songs))
	for _, song := range res.Songs {
		got = append(got, song.Title)
	}
	// WalkDir visits entries in lexical order
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, got)
}

func TestScan_PerFileFailuresAreSkipped(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "good.mp3", "bad.mp3", "boom.mp3")
	reg := prometheus.NewRegistry()
	mt := metrics.NewMetrics(reg)

	s := NewFileScanner(stemExtractor{panicOn: "boom.mp3"}, &fakeReconciler{failOn: "bad.mp3"},
		WithLogger(quietLogger()), WithMetrics(mt))

	res, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, []string{"good"}, titles(res.Songs))
	assert.Equal(t, 2.0, testutil.ToFloat64(mt.ScanFilesTotal.WithLabelValues(metrics.OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.ScanFilesTotal.WithLabelValues(metrics.OutcomeCreated)))
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.mp3", "b.mp3")
	rec := &fakeReconciler{}
	s := NewFileScanner(stemExtractor{}, rec, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Scan(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Songs)
	assert.Empty(t, rec.seen)
}

func TestScan_IdempotentAgainstCatalog(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"第二人生/倔強.mp3",
		"第二人生/OAOA.flac",
		"自傳/頑固.mp3",
		"loose.ogg",
	)
	s, repo := newRepoScanner(t, root, stemExtractor{})
	ctx := context.Background()

	first, err := s.Scan(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 4, first.Created)
	assert.Equal(t, 3, first.AlbumsCreated, "one album per directory, including the root")

	second, err := s.Scan(ctx, root)
	require.NoError(t, err)
	assert.Zero(t, second.Created)
	assert.Equal(t, 4, second.Updated)
	assert.Zero(t, second.AlbumsCreated)

	assert.ElementsMatch(t, titles(first.Songs), titles(second.Songs))

	count, err := repo.CountSongs(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), count)
}

func TestScan_CorruptFileAlongsideValidFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "corrupt.mp3"), []byte("not an mpeg stream"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "valid.wav"), silentWAV(8000), 0644))

	ex := metadata.NewExtractor(metadata.WithLogger(quietLogger()))
	s, repo := newRepoScanner(t, root, ex, WithRateLimit(1000))

	res, err := s.Scan(context.Background(), root)
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, []string{"corrupt", "valid"}, titles(res.Songs))

	for _, song := range res.Songs {
		assert.Equal(t, metadata.DefaultArtist, song.Artist)
		assert.Nil(t, song.AlbumID)
	}

	count, _ := repo.CountSongs(context.Background())
	assert.Equal(t, int64(2), count)
}

// silentWAV builds one second of mono 16-bit silence.
func silentWAV(sampleRate int) []byte {
	le := func(b *bytes.Buffer, v uint32, n int) {
		for i := 0; i < n; i++ {
			b.WriteByte(byte(v >> (8 * i)))
		}
	}
	dataLen := uint32(sampleRate * 2)
	b := &bytes.Buffer{}
	b.WriteString("RIFF")
	le(b, 36+dataLen, 4)
	b.WriteString("WAVEfmt ")
	le(b, 16, 4)
	le(b, 1, 2)
	le(b, 1, 2)
	le(b, uint32(sampleRate), 4)
	le(b, uint32(sampleRate*2), 4)
	le(b, 2, 2)
	le(b, 16, 2)
	b.WriteString("data")
	le(b, dataLen, 4)
	b.Write(make([]byte, dataLen))
	return b.Bytes()
}
