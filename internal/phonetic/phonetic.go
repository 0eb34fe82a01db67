// Package phonetic derives sortable transliteration keys for artist names.
//
// Han characters are converted to toneless pinyin; runs of any other script
// pass through unchanged. The first letter of the result is the bucket used
// to group artists alphabetically, with OtherBucket for everything that does
// not start with an ASCII letter.
package phonetic

import (
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"

	"mayday/internal/logging"
)

// OtherBucket groups names whose key does not start with an ASCII letter.
const OtherBucket = "#"

// Transliterator turns a display string into phonetic syllables.
type Transliterator interface {
	Syllables(name string) []string
}

// PinyinTransliterator converts Han characters with go-pinyin and keeps every
// other rune as its own syllable.
type PinyinTransliterator struct {
	args pinyin.Args
}

// NewPinyinTransliterator creates a transliterator using the toneless style.
func NewPinyinTransliterator() *PinyinTransliterator {
	args := pinyin.NewArgs()
	args.Style = pinyin.Normal
	args.Fallback = func(r rune, a pinyin.Args) []string {
		return []string{string(r)}
	}
	return &PinyinTransliterator{args: args}
}

// Syllables implements Transliterator.
func (p *PinyinTransliterator) Syllables(name string) []string {
	return pinyin.LazyPinyin(name, p.args)
}

// Indexer computes (transliteration, bucket) pairs.
type Indexer struct {
	translit Transliterator
}

// NewIndexer creates an indexer. A nil transliterator is allowed and makes
// every name unindexed.
func NewIndexer(t Transliterator) *Indexer {
	return &Indexer{translit: t}
}

// Default returns an indexer backed by pinyin.
func Default() *Indexer {
	return NewIndexer(NewPinyinTransliterator())
}

// Index returns the lowercase transliteration of name and its bucket letter.
// Names without Han characters are returned as given. Both are empty when the name is blank or transliteration is unavailable;
// callers treat that as "unindexed", not as a failure.
func (ix *Indexer) Index(name string) (key string, bucket string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	if ix == nil || ix.translit == nil {
		return "", ""
	}

	defer func() {
		if r := recover(); r != nil {
			logging.WithModule("phonetic").Warn().
				Interface("panic", r).
				Str("name", name).
				Msg("Transliteration failed, leaving name unindexed")
			key, bucket = "", ""
		}
	}()

	if hasHan(name) {
		key = strings.ToLower(strings.Join(ix.translit.Syllables(name), ""))
	} else {
		key = name
	}

	first := key
	if first == "" {
		first = name
	}
	return key, Bucket(first)
}

// Bucket maps the first rune of s to an upper-case ASCII letter, or OtherBucket.
func Bucket(s string) string {
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
		return OtherBucket
	}
	return OtherBucket
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}
