package fs

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const indexVersion = 2

// marker is one memo id found in a document, with the update time recorded next to it.
type marker struct {
	ID      string    `json:"id"`
	Updated time.Time `json:"updated,omitzero"`
}

// indexEntry is the scan result of a single markdown file.
// A file may carry several markers, e.g. documents merged by hand.
type indexEntry struct {
	Markers      []marker  `json:"markers,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

func (e *indexEntry) marker(id string) (marker, bool) {
	for _, m := range e.Markers {
		if m.ID == id {
			return m, true
		}
	}
	return marker{}, false
}

// index is the persistent id cache.
type index struct {
	Version int                    `json:"version"`
	Entries map[string]*indexEntry `json:"entries"` // Key is relative path (e.g. "2024/03/foo.md")
	dirty   bool
	byID    map[string]string
	mu      sync.RWMutex
}

// cache manages the loading, updating, and saving of the index.
type cache struct {
	Path  string // Path to .memosync/index.json
	index *index
}

func newCache(root, systemDir string) *cache {
	return &cache{
		Path:  filepath.Join(root, systemDir, "index.json"),
		index: emptyIndex(),
	}
}

func emptyIndex() *index {
	return &index{
		Version: indexVersion,
		Entries: make(map[string]*indexEntry),
		byID:    make(map[string]string),
	}
}

// Load reads the index from disk. A missing or corrupt file yields an empty index.
func (c *cache) Load() error {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	data, err := os.ReadFile(c.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read index: %w", err)
	}

	loaded := emptyIndex()
	if err := json.Unmarshal(data, loaded); err != nil || loaded.Version != indexVersion || loaded.Entries == nil {
		// Self-heal: the next refresh rescans every file.
		c.index.Entries = make(map[string]*indexEntry)
		c.index.byID = make(map[string]string)
		c.index.dirty = true
		return nil
	}

	c.index.Entries = loaded.Entries
	c.index.byID = make(map[string]string, len(loaded.Entries))
	for rel, e := range loaded.Entries {
		c.index.link(rel, e)
	}
	c.index.dirty = false
	return nil
}

// Save persists the index if it changed since the last load or save.
func (c *cache) Save() error {
	c.index.mu.RLock()
	if !c.index.dirty {
		c.index.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(c.index, "", "  ")
	c.index.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := writeFileAtomic(c.Path, data); err != nil {
		return err
	}

	c.index.mu.Lock()
	c.index.dirty = false
	c.index.mu.Unlock()
	return nil
}

// Get returns the entry of relPath if it was scanned at currentMtime.
func (c *cache) Get(relPath string, currentMtime time.Time) (*indexEntry, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	entry, ok := c.index.Entries[relPath]
	if !ok || !entry.LastModified.Equal(currentMtime) {
		return nil, false
	}
	return entry, true
}

// Set records the scan result of relPath.
func (c *cache) Set(relPath string, entry *indexEntry) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if old, ok := c.index.Entries[relPath]; ok {
		c.index.unlink(relPath, old)
	}
	c.index.Entries[relPath] = entry
	c.index.link(relPath, entry)
	c.index.dirty = true
}

// Prune removes entries that are not in the keep set.
func (c *cache) Prune(keep map[string]bool) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	for rel, e := range c.index.Entries {
		if keep[rel] {
			continue
		}
		delete(c.index.Entries, rel)
		c.index.unlink(rel, e)
		c.index.dirty = true
	}
}

// Delete removes a single entry.
func (c *cache) Delete(relPath string) {
	c.index.mu.Lock()
	defer c.index.mu.Unlock()

	if e, ok := c.index.Entries[relPath]; ok {
		delete(c.index.Entries, relPath)
		c.index.unlink(relPath, e)
		c.index.dirty = true
	}
}

// Find returns the path of a document that carries id and the update time recorded for it.
func (c *cache) Find(id string) (string, time.Time, bool) {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	rel, ok := c.index.byID[id]
	if !ok {
		return "", time.Time{}, false
	}
	m, _ := c.index.Entries[rel].marker(id)
	return rel, m.Updated, true
}

// IDs returns the memo ids carried by relPath.
func (c *cache) IDs(relPath string) []string {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()

	e, ok := c.index.Entries[relPath]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(e.Markers))
	for _, m := range e.Markers {
		ids = append(ids, m.ID)
	}
	return ids
}

// link points every marker of e at rel. Caller holds mu.
func (ix *index) link(rel string, e *indexEntry) {
	for _, m := range e.Markers {
		ix.byID[m.ID] = rel
	}
}

// unlink drops the ids of e that point at rel. An id also carried by another
// file is pointed at that file instead. Caller holds mu.
func (ix *index) unlink(rel string, e *indexEntry) {
	for _, m := range e.Markers {
		if ix.byID[m.ID] != rel {
			continue
		}
		delete(ix.byID, m.ID)
		for other, oe := range ix.Entries {
			if other == rel {
				continue
			}
			if _, ok := oe.marker(m.ID); ok {
				ix.byID[m.ID] = other
				break
			}
		}
	}
}

// Len returns the number of scanned files.
func (c *cache) Len() int {
	c.index.mu.RLock()
	defer c.index.mu.RUnlock()
	return len(c.index.Entries)
}

// scanDocument extracts every memo id marker of a document: the frontmatter
// memo_id and each marker line of the properties callouts. An Updated line
// applies to the next marker that follows it.
func scanDocument(data []byte, loc *time.Location) []marker {
	var markers []marker
	add := func(m marker) {
		for i, seen := range markers {
			if seen.ID == m.ID {
				if m.Updated.After(seen.Updated) {
					markers[i].Updated = m.Updated
				}
				return
			}
		}
		markers = append(markers, m)
	}

	fm, body, ok, err := parseFrontmatter(data)
	if ok && err == nil && fm.MemoID != "" {
		add(marker{ID: fm.MemoID, Updated: fm.Updated})
	}

	var updated time.Time
	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \r")
		switch {
		case strings.HasPrefix(line, updatedPrefix):
			if t, err := time.ParseInLocation(displayTimeLayout, strings.TrimPrefix(line, updatedPrefix), loc); err == nil {
				updated = t
			}
		case strings.HasPrefix(line, MarkerPrefix):
			if id := strings.TrimSpace(strings.TrimPrefix(line, MarkerPrefix)); id != "" {
				add(marker{ID: id, Updated: updated})
			}
			updated = time.Time{}
		}
	}
	return markers
}
