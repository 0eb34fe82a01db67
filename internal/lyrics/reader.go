package lyrics

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// fallbackEncodings are tried in order once the content is not valid UTF-8.
// ISO-8859-1 maps every byte, so it always succeeds.
var fallbackEncodings = []struct {
	name string
	enc  encoding.Encoding
}{
	{"gbk", simplifiedchinese.GBK},
	{"big5", traditionalchinese.Big5},
	{"latin-1", charmap.ISO8859_1},
}

// ReadFile reads a lyric file and returns its trimmed text together with the
// name of the encoding that decoded it.
func ReadFile(path string) (string, string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read lyric file: %w", err)
	}
	text, enc := Decode(raw)
	return text, enc, nil
}

// Decode converts raw lyric bytes to trimmed UTF-8 text.
func Decode(raw []byte) (string, string) {
	if utf8.Valid(raw) {
		return strings.TrimSpace(string(bytes.TrimPrefix(raw, utf8BOM))), "utf-8"
	}

	for _, fb := range fallbackEncodings {
		out, err := fb.enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		// x/text substitutes U+FFFD for invalid sequences instead of failing
		if bytes.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return strings.TrimSpace(string(out)), fb.name
	}

	return strings.TrimSpace(strings.ToValidUTF8(string(raw), "")), "utf-8"
}
