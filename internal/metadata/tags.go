package metadata

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// TagContainer is a read-only view of the tag fields found in one file.
// Keys are case-insensitive.
type TagContainer interface {
	Get(key string) (string, bool)
	Len() int
}

// TagReader opens an audio file and returns its tags.
type TagReader interface {
	Read(path string) (TagContainer, error)
}

// ContainerChecker is implemented by readers able to confirm that an
// untagged file is still a well-formed audio container.
type ContainerChecker interface {
	Check(path string) error
}

// Tags is a map-backed TagContainer with upper-cased keys.
type Tags map[string]string

// NewTags builds a container from arbitrary keys.
func NewTags(values map[string]string) Tags {
	t := make(Tags, len(values))
	for k, v := range values {
		t.set(k, v)
	}
	return t
}

func (t Tags) set(key, value string) {
	t[strings.ToUpper(key)] = value
}

// Get returns the value stored under key, ignoring case.
func (t Tags) Get(key string) (string, bool) {
	v, ok := t[strings.ToUpper(key)]
	return v, ok
}

// Len returns the number of fields.
func (t Tags) Len() int {
	return len(t)
}

// DhowdenReader reads ID3v1/v2, MP4, FLAC and OGG tags with dhowden/tag.
type DhowdenReader struct{}

// Read parses the tags of path. Files without any tag block yield
// an empty container and tag.ErrNoTagsFound.
func (DhowdenReader) Read(path string) (TagContainer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if err == tag.ErrNoTagsFound {
			return Tags{}, err
		}
		return nil, err
	}

	return fromMetadata(m), nil
}

// Check identifies the container of path. Raw AAC streams carry no tag
// block, so an ADTS or ADIF header is accepted for them.
func (DhowdenReader) Check(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, _, err := tag.Identify(f); err == nil {
		return nil
	} else if !strings.EqualFold(filepath.Ext(path), ".aac") {
		return fmt.Errorf("unrecognised audio container: %w", err)
	}

	head := make([]byte, 4)
	if _, err := f.ReadAt(head, 0); err != nil {
		return fmt.Errorf("aac header: %w", err)
	}
	if isADTS(head) || string(head) == "ADIF" {
		return nil
	}
	return fmt.Errorf("aac header: no ADTS sync word")
}

func isADTS(b []byte) bool {
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xF6 == 0xF0
}

// fromMetadata flattens the raw frames and fills the generic keys from the
// format-independent accessors when the raw map lacks them.
func fromMetadata(m tag.Metadata) Tags {
	t := Tags{}
	for k, v := range m.Raw() {
		if s, ok := rawString(v); ok {
			t.set(k, s)
		}
	}

	generic := map[string]string{
		"TITLE":  m.Title(),
		"ARTIST": m.Artist(),
		"ALBUM":  m.Album(),
	}
	if n, total := m.Track(); n > 0 {
		if total > 0 {
			generic["TRACKNUMBER"] = fmt.Sprintf("%d/%d", n, total)
		} else {
			generic["TRACKNUMBER"] = fmt.Sprintf("%d", n)
		}
	}

	for k, v := range generic {
		if v == "" {
			continue
		}
		if _, ok := t.Get(k); !ok {
			t.set(k, v)
		}
	}
	return t
}

func rawString(v interface{}) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case int:
		return fmt.Sprintf("%d", x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}
