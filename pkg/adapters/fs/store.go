package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aretw0/memosync/pkg/core"
)

const (
	// DefaultSystemDir holds the persisted id index under the sync root.
	DefaultSystemDir = ".memosync"
	// ResourceDir is the per-month directory that receives attachments.
	ResourceDir = "resources"
	// DigestDir receives weekly digest documents.
	DigestDir = "digests"

	documentPattern = "**/*.md"
)

// Store implements core.Store on the local filesystem.
type Store struct {
	Path   string
	cache  *cache
	config Config

	writeMu sync.Mutex
	stale   atomic.Bool

	mu            sync.RWMutex
	watcherActive bool
	lastRefresh   *time.Time
	invalidations int
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Path      string
	SystemDir string // e.g. ".memosync"
	// Resources downloads attachments. When nil, attachments are not materialized.
	Resources core.ResourceFetcher
	// Location is used for directory names, file names and displayed times. Defaults to time.Local.
	Location *time.Location
	// Frontmatter prepends a YAML header to every memo document.
	Frontmatter bool
	Logger      *slog.Logger
	// ErrorHandler receives watcher errors that are not returned to a caller.
	ErrorHandler func(error)
}

var _ core.Store = (*Store)(nil)

// NewStore creates a filesystem store rooted at config.Path.
func NewStore(config Config) *Store {
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{
		Path:   config.Path,
		cache:  newCache(config.Path, config.SystemDir),
		config: config,
	}
	s.stale.Store(true)
	return s
}

// Initialize creates the sync root and loads the persisted index.
func (s *Store) Initialize(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Path) == "" {
		return core.ConfigError("sync directory is required")
	}
	if err := os.MkdirAll(s.Path, 0755); err != nil {
		return fmt.Errorf("failed to create sync directory: %w", err)
	}
	if n, err := removeStaleTemps(s.Path); err != nil {
		s.config.Logger.Warn("failed to look for interrupted writes", "error", err)
	} else if n > 0 {
		s.config.Logger.Info("removed files of interrupted writes", "count", n)
	}
	if err := s.cache.Load(); err != nil {
		s.config.Logger.Warn("index not loaded, rebuilding", "path", s.cache.Path, "error", err)
	}
	s.stale.Store(true)
	return nil
}

// Invalidate forces the next lookup to rescan the tree.
func (s *Store) Invalidate() {
	s.stale.Store(true)
	s.mu.Lock()
	s.invalidations++
	s.mu.Unlock()
}

// Refresh rescans the markdown files under the root. Only files whose mtime
// changed since the previous scan are read.
func (s *Store) Refresh(ctx context.Context) error {
	s.stale.Store(false)

	root := os.DirFS(s.Path)
	seen := make(map[string]bool)
	err := doublestar.GlobWalk(root, documentPattern, func(rel string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.ignored(rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			// Removed between listing and stat.
			return nil
		}
		seen[rel] = true

		if _, hit := s.cache.Get(rel, info.ModTime()); hit {
			return nil
		}
		data, err := os.ReadFile(filepath.Join(s.Path, filepath.FromSlash(rel)))
		if err != nil {
			s.config.Logger.Debug("skipping unreadable document", "path", rel, "error", err)
			return nil
		}
		s.cache.Set(rel, &indexEntry{Markers: scanDocument(data, s.config.Location), LastModified: info.ModTime()})
		return nil
	}, doublestar.WithFilesOnly())
	if err != nil {
		s.stale.Store(true)
		return fmt.Errorf("failed to scan %s: %w", s.Path, err)
	}

	s.cache.Prune(seen)
	if err := s.cache.Save(); err != nil {
		s.config.Logger.Warn("index not saved", "path", s.cache.Path, "error", err)
	}

	now := time.Now()
	s.mu.Lock()
	s.lastRefresh = &now
	s.mu.Unlock()
	return nil
}

func (s *Store) ignored(rel string) bool {
	return strings.HasPrefix(rel, s.config.SystemDir+"/") || isTempFile(rel)
}

func (s *Store) ensureFresh(ctx context.Context) error {
	if !s.stale.Load() {
		return nil
	}
	return s.Refresh(ctx)
}

// Exists reports whether a document under the root carries the marker of memoName.
func (s *Store) Exists(ctx context.Context, memoName string) (bool, error) {
	_, found, err := s.Lookup(ctx, memoName)
	return found, err
}

// Lookup returns the path (relative to the root) and recorded update time of memoName.
func (s *Store) Lookup(ctx context.Context, memoName string) (core.Entry, bool, error) {
	if err := s.ensureFresh(ctx); err != nil {
		return core.Entry{}, false, err
	}
	rel, updated, ok := s.cache.Find(memoName)
	if !ok {
		return core.Entry{}, false, nil
	}
	return core.Entry{Path: rel, UpdatedAt: updated}, true, nil
}

// Write renders m with body and persists it under root/YYYY/MM. Attachments are
// downloaded into the month's resources directory; a failed download is logged
// and its link omitted. An existing document of the same memo at another path
// is removed once the new one is in place.
func (s *Store) Write(ctx context.Context, m core.Memo, body string) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureFresh(ctx); err != nil {
		return "", err
	}

	created := m.CreateTime.In(s.config.Location)
	monthRel := fmt.Sprintf("%04d/%02d", created.Year(), int(created.Month()))
	rel := s.documentPath(monthRel, DocumentName(m, s.config.Location), m.Name)

	var doc strings.Builder
	doc.WriteString(NormalizeInlineTags(body))
	doc.WriteString(s.attachments(ctx, m, rel))

	tags := ExtractTags(m.Content)
	doc.WriteString(properties(m, tags, s.config.Location))

	data := []byte(doc.String())
	if s.config.Frontmatter {
		var err error
		if data, err = encodeFrontmatter(newFrontmatter(m, tags), doc.String()); err != nil {
			return "", err
		}
	}

	full := filepath.Join(s.Path, filepath.FromSlash(rel))
	if err := writeFileAtomic(full, data); err != nil {
		return "", err
	}

	if oldRel, _, ok := s.cache.Find(m.Name); ok && oldRel != rel && s.ownedBy(oldRel, m.Name) {
		if err := os.Remove(filepath.Join(s.Path, filepath.FromSlash(oldRel))); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.config.Logger.Warn("previous document not removed", "memo", m.Name, "path", oldRel, "error", err)
		}
		s.cache.Delete(oldRel)
	}

	entry := &indexEntry{Markers: []marker{{ID: m.Name, Updated: m.UpdateTime}}}
	if info, err := os.Stat(full); err == nil {
		entry.LastModified = info.ModTime()
	}
	s.cache.Set(rel, entry)
	if err := s.cache.Save(); err != nil {
		s.config.Logger.Warn("index not saved", "path", s.cache.Path, "error", err)
	}

	return rel, nil
}

// documentPath returns monthRel/name unless that file belongs to something
// other than memoName, in which case " (2)", " (3)"... is appended to the name.
func (s *Store) documentPath(monthRel, name, memoName string) string {
	stem := strings.TrimSuffix(name, ".md")
	for n := 1; ; n++ {
		rel := monthRel + "/" + name
		if n > 1 {
			rel = fmt.Sprintf("%s/%s (%d).md", monthRel, stem, n)
		}
		if s.ownedBy(rel, memoName) {
			return rel
		}
		if _, err := os.Stat(filepath.Join(s.Path, filepath.FromSlash(rel))); errors.Is(err, os.ErrNotExist) {
			return rel
		}
	}
}

// ownedBy reports whether rel is indexed as carrying memoName and no other memo.
func (s *Store) ownedBy(rel, memoName string) bool {
	ids := s.cache.IDs(rel)
	return len(ids) == 1 && ids[0] == memoName
}

// attachments downloads the resources of m and returns their markdown, images
// first as embeds and then other files as an "Attachments" list.
func (s *Store) attachments(ctx context.Context, m core.Memo, docRel string) string {
	if len(m.Resources) == 0 || s.config.Resources == nil {
		return ""
	}

	var images, files []core.Resource
	for _, r := range m.Resources {
		if IsImage(r.Filename) {
			images = append(images, r)
		} else {
			files = append(files, r)
		}
	}

	var b strings.Builder
	var lines []string
	for _, r := range images {
		if link, ok := s.saveResource(ctx, m, r, docRel); ok {
			lines = append(lines, fmt.Sprintf("![%s](%s)", r.Filename, markdownTarget(link)))
		}
	}
	if len(lines) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}

	lines = lines[:0]
	for _, r := range files {
		if link, ok := s.saveResource(ctx, m, r, docRel); ok {
			lines = append(lines, fmt.Sprintf("- [%s](%s)", r.Filename, markdownTarget(link)))
		}
	}
	if len(lines) > 0 {
		b.WriteString("\n\n### Attachments\n")
		b.WriteString(strings.Join(lines, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

// saveResource downloads r next to the document and returns the link relative to it.
func (s *Store) saveResource(ctx context.Context, m core.Memo, r core.Resource, docRel string) (string, bool) {
	logger := s.config.Logger.With("memo", m.Name, "resource", r.Name)

	data, err := s.config.Resources.Download(ctx, r)
	if err != nil {
		logger.Warn("attachment omitted", "error", err)
		return "", false
	}

	resRel := pathDir(docRel) + "/" + ResourceDir + "/" + r.ID() + "_" + SanitizeFileName(r.Filename)
	full := filepath.Join(s.Path, filepath.FromSlash(resRel))
	if err := writeFileAtomic(full, data); err != nil {
		logger.Warn("attachment omitted", "error", err)
		return "", false
	}
	return RelativePath(docRel, resRel), true
}

// WriteDigest persists a weekly digest as root/digests/Weekly Digest (YYYY-MM-DD).md.
func (s *Store) WriteDigest(ctx context.Context, body string, at time.Time) (string, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := fmt.Sprintf("Weekly Digest (%s).md", at.In(s.config.Location).Format(time.DateOnly))
	if err := writeFileAtomic(filepath.Join(s.Path, DigestDir, name), []byte(body)); err != nil {
		return "", err
	}
	return DigestDir + "/" + name, nil
}

func pathDir(rel string) string {
	if i := strings.LastIndex(rel, "/"); i >= 0 {
		return rel[:i]
	}
	return "."
}
