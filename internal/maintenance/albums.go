package maintenance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mayday/internal/catalog"
	"mayday/internal/models"
)

// Audit reasons
const (
	ReasonNoSongs     = "no_songs"
	ReasonOutsideRoot = "outside_root"
)

// AlbumStore lists albums and songs for AuditAlbums.
type AlbumStore interface {
	SongLister
	ListAlbums(ctx context.Context) ([]models.Album, error)
}

// AlbumFinding is an album a cleanup would consider removing.
type AlbumFinding struct {
	Album     models.Album
	Reason    string
	SongPaths []string
}

// AuditAlbums lists albums that have no songs, or none of whose songs live
// under the authoritative root.
func AuditAlbums(ctx context.Context, store AlbumStore, root string) ([]AlbumFinding, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("authoritative root is required")
	}
	canonicalRoot, _ := catalog.Canonicalize(root)

	albums, err := store.ListAlbums(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list albums: %w", err)
	}
	songs, err := store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	byAlbum := make(map[int64][]models.Song)
	for _, s := range songs {
		if s.AlbumID != nil {
			byAlbum[*s.AlbumID] = append(byAlbum[*s.AlbumID], s)
		}
	}

	var findings []AlbumFinding
	for _, album := range albums {
		members := byAlbum[album.ID]
		if len(members) == 0 {
			findings = append(findings, AlbumFinding{Album: album, Reason: ReasonNoSongs})
			continue
		}

		var paths []string
		inside := false
		for _, s := range members {
			for _, p := range []string{s.OriginalPath, s.FilePath} {
				if strings.TrimSpace(p) == "" {
					continue
				}
				canonical, _ := catalog.Canonicalize(p)
				paths = append(paths, canonical)
				if catalog.IsWithin(canonicalRoot, canonical) {
					inside = true
				}
			}
		}
		if !inside {
			findings = append(findings, AlbumFinding{Album: album, Reason: ReasonOutsideRoot, SongPaths: paths})
		}
	}
	return findings, nil
}
