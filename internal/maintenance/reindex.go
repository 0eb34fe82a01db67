// Package maintenance holds catalog upkeep tasks. Apart from re-indexing
// artists they only report and never modify or delete rows.
package maintenance

import (
	"context"
	"fmt"

	"mayday/internal/logging"
	"mayday/internal/phonetic"
)

// ArtistIndexStore is the storage used by ReindexArtists.
type ArtistIndexStore interface {
	ListArtists(ctx context.Context) ([]string, error)
	UpdateArtistIndex(ctx context.Context, artist, pinyin, initial string) (int64, error)
}

// ReindexReport counts what ReindexArtists touched.
type ReindexReport struct {
	Artists   int
	Songs     int64
	Unindexed []string
}

// ReindexArtists recomputes the transliteration and bucket letter of every
// distinct artist and writes them to all of that artist's songs. Artists the
// indexer cannot handle are left untouched and listed as unindexed.
func ReindexArtists(ctx context.Context, store ArtistIndexStore, ix *phonetic.Indexer) (*ReindexReport, error) {
	artists, err := store.ListArtists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list artists: %w", err)
	}

	log := logging.WithModule("maintenance")
	report := &ReindexReport{}
	for _, artist := range artists {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		key, bucket := ix.Index(artist)
		if key == "" {
			report.Unindexed = append(report.Unindexed, artist)
			continue
		}

		n, err := store.UpdateArtistIndex(ctx, artist, key, bucket)
		if err != nil {
			return report, fmt.Errorf("failed to index artist %q: %w", artist, err)
		}
		report.Artists++
		report.Songs += n

		log.Debug().
			Str("artist", artist).
			Str("pinyin", key).
			Str("initial", bucket).
			Int64("songs", n).
			Msg("Artist indexed")
	}

	log.Info().
		Int("artists", report.Artists).
		Int64("songs", report.Songs).
		Int("unindexed", len(report.Unindexed)).
		Msg("Artist re-index completed")
	return report, nil
}
