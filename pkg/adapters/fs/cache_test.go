package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		c := newCache(t.TempDir(), ".cache")

		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Loads Valid JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			t.Fatal(err)
		}

		jsonContent := `{
			"version": 2,
			"entries": {
				"2024/03/note.md": {
					"markers": [{"id": "memos/7", "updated": "2024-03-14T10:00:00Z"}],
					"lastModified": "2024-03-14T10:00:01Z"
				}
			}
		}`
		if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(jsonContent), 0644); err != nil {
			t.Fatal(err)
		}

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		rel, updated, ok := c.Find("memos/7")
		if !ok {
			t.Fatal("Expected memos/7 to be indexed")
		}
		if rel != "2024/03/note.md" {
			t.Errorf("Expected path 2024/03/note.md, got %q", rel)
		}
		if !updated.Equal(time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("Unexpected update time %v", updated)
		}
	})

	t.Run("Resets on Older Version", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			t.Fatal(err)
		}
		old := `{"version": 1, "entries": {"a.md": {"id": "memos/1", "lastModified": "2024-03-14T10:00:01Z"}}}`
		if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(old), 0644); err != nil {
			t.Fatal(err)
		}

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load should self-heal, got: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected a rebuild from scratch, got %d entries", c.Len())
		}
	})

	t.Run("Resets on Corrupted JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		if err := os.MkdirAll(cacheDir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load should self-heal, got: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries after corruption, got %d", c.Len())
		}
	})
}

func TestCache_SetGetPrune(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".cache")
	mtime := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	c.Set("a.md", &indexEntry{Markers: []marker{{ID: "memos/1"}}, LastModified: mtime})
	c.Set("b.md", &indexEntry{LastModified: mtime})

	if _, hit := c.Get("a.md", mtime); !hit {
		t.Error("Expected hit for unchanged mtime")
	}
	if _, hit := c.Get("a.md", mtime.Add(time.Second)); hit {
		t.Error("Expected miss for changed mtime")
	}

	// Moving an id to another file drops the old mapping.
	c.Set("c.md", &indexEntry{Markers: []marker{{ID: "memos/1"}}, LastModified: mtime})
	if rel, _, _ := c.Find("memos/1"); rel != "c.md" {
		t.Errorf("Expected memos/1 at c.md, got %q", rel)
	}

	c.Prune(map[string]bool{"b.md": true})
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry after prune, got %d", c.Len())
	}
	if _, _, ok := c.Find("memos/1"); ok {
		t.Error("Expected memos/1 to be pruned")
	}
}

func TestCache_SeveralMarkersPerFile(t *testing.T) {
	c := newCache(t.TempDir(), ".cache")
	mtime := time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)

	c.Set("merged.md", &indexEntry{Markers: []marker{{ID: "memos/1"}, {ID: "memos/2"}}, LastModified: mtime})
	c.Set("copy.md", &indexEntry{Markers: []marker{{ID: "memos/2"}}, LastModified: mtime})

	for _, id := range []string{"memos/1", "memos/2"} {
		if _, _, ok := c.Find(id); !ok {
			t.Errorf("Expected %s to be indexed", id)
		}
	}

	// memos/2 survives in copy.md once merged.md is gone.
	c.Delete("merged.md")
	if _, _, ok := c.Find("memos/1"); ok {
		t.Error("Expected memos/1 to be dropped with merged.md")
	}
	if rel, _, ok := c.Find("memos/2"); !ok || rel != "copy.md" {
		t.Errorf("Expected memos/2 at copy.md, got %q (found=%v)", rel, ok)
	}
}

func TestCache_SaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".cache")
	c.Set("2024/03/x.md", &indexEntry{Markers: []marker{{ID: "memos/9"}}, LastModified: time.Now()})

	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded := newCache(tmpDir, ".cache")
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, _, ok := reloaded.Find("memos/9"); !ok {
		t.Error("Expected memos/9 after reload")
	}
}

func TestScanDocument(t *testing.T) {
	t.Run("Properties Callout", func(t *testing.T) {
		doc := "body\n\n---\n> [!note]- Memo Properties\n> - Updated: 2024-03-14 10:00:00\n> - ID: memos/7\n"
		markers := scanDocument([]byte(doc), time.UTC)
		if len(markers) != 1 || markers[0].ID != "memos/7" {
			t.Fatalf("Expected [memos/7], got %+v", markers)
		}
		if !markers[0].Updated.Equal(time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("Unexpected update time %v", markers[0].Updated)
		}
	})

	t.Run("Frontmatter And Callout Markers", func(t *testing.T) {
		doc := "---\nmemo_id: memos/8\nupdated: 2024-03-15T08:00:00Z\n---\nbody\n> - ID: memos/other\n"
		markers := scanDocument([]byte(doc), time.UTC)
		if len(markers) != 2 {
			t.Fatalf("Expected 2 markers, got %+v", markers)
		}
		if markers[0].ID != "memos/8" || markers[0].Updated.Hour() != 8 {
			t.Errorf("Unexpected frontmatter marker %+v", markers[0])
		}
		if markers[1].ID != "memos/other" {
			t.Errorf("Expected memos/other, got %q", markers[1].ID)
		}
	})

	t.Run("Merged Documents", func(t *testing.T) {
		doc := "first\n> - Updated: 2024-03-14 10:00:00\n> - ID: memos/1\n\nsecond\n> - Updated: 2024-03-15 11:00:00\n> - ID: memos/2\n"
		markers := scanDocument([]byte(doc), time.UTC)
		if len(markers) != 2 {
			t.Fatalf("Expected 2 markers, got %+v", markers)
		}
		if markers[0].ID != "memos/1" || markers[0].Updated.Day() != 14 {
			t.Errorf("Unexpected first marker %+v", markers[0])
		}
		if markers[1].ID != "memos/2" || markers[1].Updated.Day() != 15 {
			t.Errorf("Unexpected second marker %+v", markers[1])
		}
	})

	t.Run("No Marker", func(t *testing.T) {
		if markers := scanDocument([]byte("# just a note\n"), time.UTC); len(markers) != 0 {
			t.Errorf("Expected no markers, got %+v", markers)
		}
	})
}
