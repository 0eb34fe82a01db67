package lyrics

import (
	"mayday/internal/models"
	"mayday/internal/textmatch"
)

// Matcher picks the song a lyric file most likely belongs to.
type Matcher struct {
	minScore float64
}

// NewMatcher returns a matcher accepting scores at or above minScore.
// A non-positive minScore falls back to textmatch.MatchThreshold.
func NewMatcher(minScore float64) *Matcher {
	if minScore <= 0 {
		minScore = textmatch.MatchThreshold
	}
	return &Matcher{minScore: minScore}
}

// MinScore returns the acceptance threshold.
func (m *Matcher) MinScore() float64 {
	return m.minScore
}

// Match scores stem against every song title and returns the best song with
// its score, or nil when no title reaches the threshold. Ties keep the
// earlier song.
func (m *Matcher) Match(stem string, songs []models.Song) (*models.Song, float64) {
	if len(songs) == 0 {
		return nil, 0
	}

	titles := make([]string, len(songs))
	for i := range songs {
		titles[i] = textmatch.Normalize(songs[i].Title)
	}

	idx, score := textmatch.BestAbove(textmatch.Normalize(stem), titles, m.minScore)
	if idx < 0 {
		return nil, score
	}
	return &songs[idx], score
}
