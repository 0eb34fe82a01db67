package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) (string, string, string) {
	t.Helper()
	tmp := t.TempDir()
	music := filepath.Join(tmp, "music")
	lyricDir := filepath.Join(tmp, "lyrics")
	require.NoError(t, os.MkdirAll(music, 0o755))
	require.NoError(t, os.MkdirAll(lyricDir, 0o755))

	cfg := fmt.Sprintf(`database:
  driver: sqlite
  path: %q
library:
  music_directory: %q
scanner:
  workers: 1
lyrics:
  directory: %q
logging:
  level: error
  format: json
`, filepath.Join(tmp, "mayday.db"), music, lyricDir)

	path := filepath.Join(tmp, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, music, lyricDir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmdRoot.SetOut(out)
	cmdRoot.SetErr(out)
	cmdRoot.SetArgs(args)
	err := cmdRoot.ExecuteContext(ctx)
	return out.String(), err
}

func TestCLI_ScanThenLoadLyrics(t *testing.T) {
	cfgPath, music, lyricDir := writeConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(music, "擁抱.mp3"), []byte("not audio"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lyricDir, "擁抱.txt"), []byte("脫下長日的假面"), 0o644))

	out, err := run(t, "--config", cfgPath, "scan")
	require.NoError(t, err)
	assert.Contains(t, out, "created:        1")

	out, err = run(t, "--config", cfgPath, "lyrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Preview mode")
	assert.Contains(t, out, "updated: 0")

	out, err = run(t, "--config", cfgPath, "lyrics", "--load")
	require.NoError(t, err)
	assert.Contains(t, out, `"擁抱"`)
	assert.Contains(t, out, "updated: 1")

	out, err = run(t, "--config", cfgPath, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 artists across 1 songs")

	out, err = run(t, "--config", cfgPath, "report", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "Checked 1 songs: 1 found, 0 missing")

	out, err = run(t, "--config", cfgPath, "report", "duplicates")
	require.NoError(t, err)
	assert.Contains(t, out, "0 duplicate groups")
}

func TestCLI_ScanMissingDirectoryIsEmpty(t *testing.T) {
	cfgPath, music, _ := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "scan", "--fresh", filepath.Join(music, "nope"))
	require.NoError(t, err)
	assert.Contains(t, out, "files:          0")
	assert.Contains(t, out, "created:        0")
}

func TestCLI_InterruptedScanReportsPartialResult(t *testing.T) {
	cfgPath, music, _ := writeConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(music, "溫柔.mp3"), []byte("not audio"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := runContext(t, ctx, "--config", cfgPath, "scan", "--fresh")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, out, "Scanned "+music)
	assert.Contains(t, out, "created:        0")
}

func TestCLI_RelinkMovedFile(t *testing.T) {
	cfgPath, music, _ := writeConfig(t)
	oldPath := filepath.Join(music, "擁抱.mp3")
	require.NoError(t, os.WriteFile(oldPath, []byte("not audio"), 0o644))

	_, err := run(t, "--config", cfgPath, "scan")
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(music, "live"), 0o755))
	require.NoError(t, os.Rename(oldPath, filepath.Join(music, "live", "擁抱 (Live).mp3")))

	out, err := run(t, "--config", cfgPath, "report", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "0 found, 1 missing")

	out, err = run(t, "--config", cfgPath, "report", "relink")
	require.NoError(t, err)
	assert.Contains(t, out, "would relink 1")

	out, err = run(t, "--config", cfgPath, "report", "relink", "--apply")
	require.NoError(t, err)
	assert.Contains(t, out, "relinked 1")
	assert.Contains(t, out, "擁抱 (Live).mp3")

	out, err = run(t, "--config", cfgPath, "report", "missing")
	require.NoError(t, err)
	assert.Contains(t, out, "1 found, 0 missing")
}

func TestCLI_TimelineRejectsUnknownKind(t *testing.T) {
	cfgPath, _, _ := writeConfig(t)

	_, err := run(t, "--config", cfgPath, "timeline", "--kind", "concert")
	assert.Error(t, err)
}

func TestCLI_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("library:\n  album_policy: anything\n"), 0o644))

	_, err := run(t, "--config", path, "reindex")
	assert.Error(t, err)
}

func TestCLI_TimelineOutputs(t *testing.T) {
	cfgPath, _, _ := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "timeline", "--kind", "", "-o", "yaml")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	out, err = run(t, "--config", cfgPath, "timeline", "-o", "json")
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out)

	_, err = run(t, "--config", cfgPath, "timeline", "-o", "xml")
	assert.Error(t, err)
}

func TestCLI_LogsPaging(t *testing.T) {
	cfgPath, _, _ := writeConfig(t)

	out, err := run(t, "--config", cfgPath, "logs", "--page", "0", "--page-size", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "Page 1 of 0 (0 entries)")
}
