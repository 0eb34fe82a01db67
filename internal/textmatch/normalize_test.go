package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":                  "",
		"Stubborn-Live":     "stubbornlive",
		"  Hello, World!  ": "helloworld",
		"倔強 (Live)":         "倔強live",
		"snake_case 42":     "snake_case42",
		"Ｆｕｌｌ　Ｗｉｄｔｈ":        "ｆｕｌｌｗｉｄｔｈ",
		"!!!":               "",
	}

	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestCompactSpaces(t *testing.T) {
	assert.Equal(t, "AlbumX", CompactSpaces("Album X"))
	assert.Equal(t, "AlbumX", CompactSpaces("Album  X"))
	assert.Equal(t, "AlbumX", CompactSpaces("Album　X"))
	assert.Equal(t, "AlbumX", CompactSpaces(" Album\tX "))
	// punctuation and case survive
	assert.Equal(t, "A-b.C", CompactSpaces("A - b . C"))
}
