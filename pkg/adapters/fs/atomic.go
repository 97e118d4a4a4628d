package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// TempFilePrefix marks the staging files of writeFileAtomic. The watcher and
// the index scan ignore them.
const TempFilePrefix = ".memosync-tmp-"

// writeFileAtomic stages data next to filename and renames it into place,
// creating missing parent directories. Documents are always written 0644.
func writeFileAtomic(filename string, data []byte) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	staged, err := os.CreateTemp(dir, TempFilePrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", filepath.Base(filename), err)
	}
	name := staged.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(name)
		}
	}()

	_, err = staged.Write(data)
	if err == nil {
		err = staged.Sync()
	}
	if cerr := staged.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(name, 0644)
	}
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", filepath.Base(filename), err)
	}

	if err := os.Rename(name, filename); err != nil {
		return fmt.Errorf("failed to replace %s: %w", filename, err)
	}
	committed = true
	return nil
}

// isTempFile reports whether name is a staging file of writeFileAtomic.
func isTempFile(name string) bool {
	return strings.HasPrefix(filepath.Base(name), TempFilePrefix)
}

// removeStaleTemps deletes staging files left under root by an interrupted
// write and returns how many were removed.
func removeStaleTemps(root string) (int, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+TempFilePrefix+"*", doublestar.WithFilesOnly())
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, rel := range matches {
		if err := os.Remove(filepath.Join(root, filepath.FromSlash(rel))); err == nil {
			removed++
		}
	}
	return removed, nil
}
