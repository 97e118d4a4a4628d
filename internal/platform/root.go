package platform

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/aretw0/memosync/pkg/adapters/fs"
)

// ErrRootNotFound is returned by FindRoot when no indicator exists up to the filesystem root.
var ErrRootNotFound = errors.New("memosync root not found")

// rootIndicators mark a directory that holds a memosync setup.
var rootIndicators = []string{
	fs.DefaultSystemDir,
	ConfigName + ".yaml",
	ConfigName + ".yml",
	ConfigName + ".toml",
	ConfigName + ".json",
}

// FindRoot walks upwards from startDir to the first directory containing a
// memosync config file or a .memosync system directory, and returns its absolute path.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range rootIndicators {
			if hasFile(dir, name) {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func hasFile(dir, name string) bool {
	_, err := os.Stat(filepath.Join(dir, name))
	return err == nil
}
