package textmatch

import (
	"strings"
	"unicode/utf8"
)

// Score thresholds and weights.
const (
	ExactScore     = 100.0
	ContainsBase   = 80.0
	ContainedBase  = 60.0
	LengthWeight   = 20.0
	OverlapWeight  = 50.0
	OverlapMinimum = 0.5

	// MatchThreshold is the lowest score accepted as a match.
	MatchThreshold = 60.0
)

// Score compares two already-normalized strings: a candidate (for example a
// lyric file stem) and a reference (for example a song title).
//
//   - equal                        -> 100
//   - reference inside candidate   -> 80 + 20*len(reference)/len(candidate)
//   - candidate inside reference   -> 60 + 20*len(candidate)/len(reference)
//   - distinct-rune overlap ratio r -> 50*r when r > 0.5, otherwise 0
//
// Lengths are counted in runes. An empty side never matches.
func Score(candidate, reference string) float64 {
	if candidate == "" || reference == "" {
		return 0
	}
	if candidate == reference {
		return ExactScore
	}

	candLen := float64(utf8.RuneCountInString(candidate))
	refLen := float64(utf8.RuneCountInString(reference))

	if strings.Contains(candidate, reference) {
		return ContainsBase + LengthWeight*refLen/candLen
	}
	if strings.Contains(reference, candidate) {
		return ContainedBase + LengthWeight*candLen/refLen
	}

	ratio := OverlapRatio(candidate, reference)
	if ratio > OverlapMinimum {
		return ratio * OverlapWeight
	}
	return 0
}

// OverlapRatio is |set(a) ∩ set(b)| / max(|set(a)|, |set(b)|) over distinct runes.
func OverlapRatio(a, b string) float64 {
	setA := runeSet(a)
	setB := runeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	common := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			common++
		}
	}

	denom := len(setA)
	if len(setB) > denom {
		denom = len(setB)
	}
	return float64(common) / float64(denom)
}

// Best returns the index of the highest scoring reference and its score.
// Ties keep the first reference seen. It returns -1 when nothing reaches
// MatchThreshold.
func Best(candidate string, references []string) (int, float64) {
	return BestAbove(candidate, references, MatchThreshold)
}

// BestAbove is Best with a caller supplied threshold.
func BestAbove(candidate string, references []string, threshold float64) (int, float64) {
	bestIdx := -1
	bestScore := 0.0
	for i, ref := range references {
		score := Score(candidate, ref)
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < threshold {
		return -1, bestScore
	}
	return bestIdx, bestScore
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{}, len(s))
	for _, r := range s {
		set[r] = struct{}{}
	}
	return set
}
