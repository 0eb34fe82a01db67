package catalog

import (
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize returns the absolute, symlink-resolved form of path. When the
// link cannot be resolved it falls back to the absolute form. ok is false
// only when not even an absolute form is available.
func Canonicalize(path string) (canonical string, ok bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return filepath.Clean(path), false
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, true
	}
	return abs, true
}

// IsWithin reports whether path equals root or lies below it.
// Both arguments must already be canonical.
func IsWithin(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	if path == root {
		return true
	}
	if !strings.HasSuffix(root, string(os.PathSeparator)) {
		root += string(os.PathSeparator)
	}
	return strings.HasPrefix(path, root)
}
