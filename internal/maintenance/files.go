package maintenance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mayday/internal/models"
)

// MissingFile is a song none of whose file references exist.
type MissingFile struct {
	Song         models.Song
	OriginalPath string
	FilePath     string
}

// FileReport is the result of CheckSongFiles.
type FileReport struct {
	Checked int
	Found   int
	Missing []MissingFile
}

// CheckSongFiles reports songs whose uploaded file and original path both
// fail to resolve to a regular file. Relative uploaded paths are resolved
// against uploadRoot.
func CheckSongFiles(ctx context.Context, store SongLister, uploadRoot string) (*FileReport, error) {
	songs, err := store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	report := &FileReport{Checked: len(songs)}
	for _, s := range songs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if songFileExists(&s, uploadRoot) {
			report.Found++
			continue
		}
		report.Missing = append(report.Missing, MissingFile{
			Song:         s,
			OriginalPath: s.OriginalPath,
			FilePath:     s.FilePath,
		})
	}
	return report, nil
}

func songFileExists(s *models.Song, uploadRoot string) bool {
	if p := strings.TrimSpace(s.FilePath); p != "" {
		if !filepath.IsAbs(p) && uploadRoot != "" {
			p = filepath.Join(uploadRoot, p)
		}
		if isRegular(p) {
			return true
		}
	}
	if p := strings.TrimSpace(s.OriginalPath); p != "" {
		return isRegular(p)
	}
	return false
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
