package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile replaces path with content, creating parent folders. The content
// lands in a sibling temp file first, so readers never see a partial write
// or a concatenation with an earlier version.
func WriteFile(path string, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create folder: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("could not create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("could not write to file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("could not set file mode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("could not close file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("could not replace file: %w", err)
	}
	return nil
}
