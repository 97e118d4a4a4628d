package fs

import (
	"os"
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
type StoreState struct {
	Path          string     `json:"path"`
	SystemDir     string     `json:"system_dir"`
	IndexSize     int        `json:"index_size"`
	Stale         bool       `json:"stale"`
	Frontmatter   bool       `json:"frontmatter"`
	Location      string     `json:"location"`
	WatcherActive bool       `json:"watcher_active"`
	Invalidations int        `json:"invalidations"`
	LastRefresh   *time.Time `json:"last_refresh,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return StoreState{
		Path:          s.Path,
		SystemDir:     s.config.SystemDir,
		IndexSize:     s.cache.Len(),
		Stale:         s.stale.Load(),
		Frontmatter:   s.config.Frontmatter,
		Location:      s.config.Location.String(),
		WatcherActive: s.watcherActive,
		Invalidations: s.invalidations,
		LastRefresh:   s.lastRefresh,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "document-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)

func (s *Store) setWatcherActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcherActive = active
}

func statDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
