package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath resolves a leading ~ to the user's home directory and cleans
// the result. Special values such as ":memory:" pass through.
func ExpandPath(path string) string {
	if path == "" || strings.HasPrefix(path, ":") {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Clean(path)
}

// EnsureParentDir creates the directory that will hold path.
func EnsureParentDir(path string) error {
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains null bytes")
	}
	dir := filepath.Dir(ExpandPath(path))
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
