package scanner

import (
	"path/filepath"
	"strings"
	"time"

	"mayday/internal/models"
)

// SupportedExtensions is the allow-list of audio extensions, lower-case.
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".m4a":  true,
	".aac":  true,
	".ogg":  true,
}

// IsAudioFile reports whether path has a supported extension, ignoring case.
func IsAudioFile(path string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// ScanResult is the outcome of one directory scan. Songs are in traversal order.
type ScanResult struct {
	Root          string
	Songs         []*models.Song
	Files         int
	Created       int
	Updated       int
	Skipped       int
	AlbumsCreated int
	Started       time.Time
	Duration      time.Duration
}

type fileOutcome struct {
	index        int
	path         string
	song         *models.Song
	created      bool
	albumCreated bool
	err          error
}
