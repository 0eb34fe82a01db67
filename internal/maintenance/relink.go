package maintenance

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"mayday/internal/catalog"
	"mayday/internal/models"
	"mayday/internal/scanner"
	"mayday/internal/textmatch"
)

// RelinkStore lists songs and persists a changed original path.
type RelinkStore interface {
	SongLister
	SaveSong(ctx context.Context, song *models.Song) error
}

// Relink is one song whose best matching file differs from its stored path.
type Relink struct {
	Song  models.Song
	From  string
	To    string
	Score float64
}

// RelinkReport is the result of RelinkSongPaths.
type RelinkReport struct {
	Files     int
	Checked   int
	Unchanged int
	Relinked  []Relink
	Unmatched []models.Song
}

// RelinkSongPaths matches every song title against the stems of the audio
// files under musicDir and points OriginalPath at the best scoring file.
// Stems and titles are compared with textmatch after normalization, so an
// exact stem wins over one that merely contains the title. Songs are only
// written when apply is set; otherwise the report is a dry run.
func RelinkSongPaths(ctx context.Context, store RelinkStore, musicDir string, apply bool) (*RelinkReport, error) {
	paths, stems, err := collectAudioStems(ctx, musicDir)
	if err != nil {
		return nil, err
	}

	songs, err := store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	report := &RelinkReport{Files: len(paths), Checked: len(songs)}
	for i := range songs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		s := songs[i]

		idx, score := textmatch.Best(textmatch.Normalize(s.Title), stems)
		if idx < 0 || !isRegular(paths[idx]) {
			report.Unmatched = append(report.Unmatched, s)
			continue
		}
		target := paths[idx]
		if target == s.OriginalPath {
			report.Unchanged++
			continue
		}

		change := Relink{Song: s, From: s.OriginalPath, To: target, Score: score}
		if apply {
			s.OriginalPath = target
			if err := store.SaveSong(ctx, &s); err != nil {
				return report, fmt.Errorf("failed to relink song %d: %w", s.ID, err)
			}
			change.Song = s
		}
		report.Relinked = append(report.Relinked, change)
	}
	return report, nil
}

// collectAudioStems walks musicDir in lexical order and returns the canonical
// path and normalized stem of every supported audio file.
func collectAudioStems(ctx context.Context, musicDir string) ([]string, []string, error) {
	root, ok := catalog.Canonicalize(musicDir)
	if !ok || !isDir(root) {
		return nil, nil, fmt.Errorf("music directory %q not found", musicDir)
	}

	var paths, stems []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !scanner.IsAudioFile(path) {
			return nil
		}
		name := d.Name()
		paths = append(paths, path)
		stems = append(stems, textmatch.Normalize(strings.TrimSuffix(name, filepath.Ext(name))))
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return paths, stems, nil
}
