package phonetic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fixedTransliterator []string

func (f fixedTransliterator) Syllables(string) []string { return f }

type panickingTransliterator struct{}

func (panickingTransliterator) Syllables(string) []string { panic("dictionary missing") }

func TestIndex_Han(t *testing.T) {
	key, bucket := Default().Index("五月天")
	assert.Equal(t, "wuyuetian", key)
	assert.Equal(t, "W", bucket)
}

func TestIndex_LatinKeepsCase(t *testing.T) {
	key, bucket := Default().Index("  Mayday ")
	assert.Equal(t, "Mayday", key)
	assert.Equal(t, "M", bucket)
}

func TestIndex_MixedScriptKeepsLatinRuns(t *testing.T) {
	key, bucket := Default().Index("Mayday五月天")
	assert.Equal(t, "maydaywuyuetian", key)
	assert.Equal(t, "M", bucket)
}

func TestIndex_LatinIsNoop(t *testing.T) {
	key, bucket := Default().Index("beyond")
	assert.Equal(t, "beyond", key)
	assert.Equal(t, "B", bucket)
}

func TestIndex_NonLetterFallsBackToOther(t *testing.T) {
	_, bucket := Default().Index("5566")
	assert.Equal(t, OtherBucket, bucket)

	_, bucket = Default().Index("!Ping")
	assert.Equal(t, OtherBucket, bucket)
}

func TestIndex_BlankName(t *testing.T) {
	key, bucket := Default().Index("   ")
	assert.Empty(t, key)
	assert.Empty(t, bucket)
}

func TestIndex_UnavailableTransliterator(t *testing.T) {
	key, bucket := NewIndexer(nil).Index("五月天")
	assert.Empty(t, key)
	assert.Empty(t, bucket)

	var ix *Indexer
	key, bucket = ix.Index("五月天")
	assert.Empty(t, key)
	assert.Empty(t, bucket)
}

func TestIndex_PanickingTransliteratorIsAbsorbed(t *testing.T) {
	key, bucket := NewIndexer(panickingTransliterator{}).Index("五月天")
	assert.Empty(t, key)
	assert.Empty(t, bucket)
}

func TestIndex_EmptySyllablesUseNameInitial(t *testing.T) {
	key, bucket := NewIndexer(fixedTransliterator{}).Index("五月天")
	assert.Empty(t, key)
	// first rune of the name is not an ASCII letter
	assert.Equal(t, OtherBucket, bucket)
}

func TestBucket(t *testing.T) {
	assert.Equal(t, "A", Bucket("abc"))
	assert.Equal(t, "Z", Bucket("Zed"))
	assert.Equal(t, OtherBucket, Bucket("é"))
	assert.Equal(t, OtherBucket, Bucket(""))
}
