package maintenance

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mayday/internal/models"
)

// SongLister lists every song with its album.
type SongLister interface {
	ListSongs(ctx context.Context) ([]models.Song, error)
}

// Keeper priority weights. Higher totals are kept.
const (
	weightOriginalPath = 1000
	weightFilePath     = 500
	weightDuration     = 100
	weightTrackNumber  = 50
	weightLyrics       = 10
)

// DuplicateGroup is a set of songs sharing title, artist and album.
type DuplicateGroup struct {
	Title     string
	Artist    string
	AlbumID   *int64
	AlbumName string

	// Keep is the most complete song of the group.
	Keep models.Song
	// Remove are the songs a cleanup would delete.
	Remove []models.Song
	// Protected are duplicates excluded from removal by the caller.
	Protected []models.Song
}

// KeeperPriority scores how complete a song record is.
func KeeperPriority(s *models.Song) int {
	score := 0
	if strings.TrimSpace(s.OriginalPath) != "" {
		score += weightOriginalPath
	}
	if strings.TrimSpace(s.FilePath) != "" {
		score += weightFilePath
	}
	if s.Duration != nil && *s.Duration > 0 {
		score += weightDuration
	}
	if s.TrackNumber != nil {
		score += weightTrackNumber
	}
	if s.HasLyrics() {
		score += weightLyrics
	}
	return score
}

type identity struct {
	title   string
	artist  string
	albumID int64
	noAlbum bool
}

// FindDuplicateSongs groups songs by trimmed title, trimmed artist and album
// and proposes one keeper per group. Songs whose id is in protect are never
// proposed for removal. Nothing is deleted.
func FindDuplicateSongs(ctx context.Context, store SongLister, protect map[int64]bool) ([]DuplicateGroup, error) {
	songs, err := store.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	return GroupDuplicates(songs, protect), nil
}

// GroupDuplicates is FindDuplicateSongs over an in-memory song list.
func GroupDuplicates(songs []models.Song, protect map[int64]bool) []DuplicateGroup {
	groups := make(map[identity][]models.Song)
	var order []identity
	for _, s := range songs {
		key := identity{
			title:  strings.TrimSpace(s.Title),
			artist: strings.TrimSpace(s.Artist),
		}
		if s.AlbumID == nil {
			key.noAlbum = true
		} else {
			key.albumID = *s.AlbumID
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], s)
	}

	var out []DuplicateGroup
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		out = append(out, buildGroup(key, members, protect))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].Artist < out[j].Artist
	})
	return out
}

func buildGroup(key identity, members []models.Song, protect map[int64]bool) DuplicateGroup {
	sort.SliceStable(members, func(i, j int) bool {
		pi, pj := KeeperPriority(&members[i]), KeeperPriority(&members[j])
		if pi != pj {
			return pi > pj
		}
		if !members[i].CreatedAt.Equal(members[j].CreatedAt) {
			return members[i].CreatedAt.Before(members[j].CreatedAt)
		}
		return members[i].ID < members[j].ID
	})

	// the best unprotected song is kept; protected songs stay regardless
	keep := 0
	for i := range members {
		if !protect[members[i].ID] {
			keep = i
			break
		}
	}

	g := DuplicateGroup{
		Title:  key.title,
		Artist: key.artist,
		Keep:   members[keep],
	}
	if !key.noAlbum {
		id := key.albumID
		g.AlbumID = &id
	}
	if g.Keep.Album != nil {
		g.AlbumName = g.Keep.Album.Name
	}

	for i, s := range members {
		switch {
		case i == keep:
		case protect[s.ID]:
			g.Protected = append(g.Protected, s)
		default:
			g.Remove = append(g.Remove, s)
		}
	}
	return g
}
