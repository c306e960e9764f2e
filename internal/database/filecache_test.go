package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedCache(t *testing.T, cache *FileCache, entries []CacheEntry) map[string]int64 {
	t.Helper()

	ids := make(map[string]int64, len(entries))
	for i := range entries {
		id, err := cache.Put(context.Background(), &entries[i])
		if err != nil {
			t.Fatalf("Put(%q) error = %v", entries[i].Path, err)
		}
		ids[entries[i].Path] = id
	}
	return ids
}

func TestParentPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"", ""},
		{"files", ""},
		{"files/Photos", "files"},
		{"files/Photos/a.jpg", "files/Photos"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := ParentPath(tt.path); got != tt.want {
				t.Errorf("ParentPath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestPutUpdatesExistingRow(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	cache := db.Cache("home::alice")

	first, err := cache.Put(ctx, &CacheEntry{Path: "files/a.jpg", Type: EntryTypeFile, MimeType: "image/jpeg", Size: 10})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	second, err := cache.Put(ctx, &CacheEntry{Path: "files/a.jpg", Type: EntryTypeFile, MimeType: "image/jpeg", Size: 20})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if first != second {
		t.Errorf("Put() id changed on update: %d != %d", first, second)
	}

	e, err := cache.Get(ctx, "files/a.jpg")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if e.Size != 20 || e.Name != "a.jpg" || e.Parent != "files" {
		t.Errorf("Get() = %+v", e)
	}

	byID, err := db.GetEntryByID(ctx, first)
	if err != nil {
		t.Fatalf("GetEntryByID() error = %v", err)
	}
	if byID.Path != "files/a.jpg" {
		t.Errorf("GetEntryByID() path = %q", byID.Path)
	}
	if _, err := db.GetEntryByID(ctx, first+100); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetEntryByID(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestRemoveSubtree(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	cache := db.Cache("home::alice")
	other := db.Cache("home::bob")

	seedCache(t, cache, []CacheEntry{
		{Path: "", Type: EntryTypeFolder},
		{Path: "thumbnails", Type: EntryTypeFolder},
		{Path: "thumbnails/1", Type: EntryTypeFolder},
		{Path: "thumbnails/1/400-200.jpg", Type: EntryTypeFile},
		{Path: "thumbnails2", Type: EntryTypeFolder},
	})
	seedCache(t, other, []CacheEntry{{Path: "thumbnails", Type: EntryTypeFolder}})

	n, err := cache.Remove(ctx, "thumbnails")
	if err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Remove() removed %d rows, want 3", n)
	}

	if _, err := cache.Get(ctx, "thumbnails2"); err != nil {
		t.Errorf("sibling with shared prefix was removed: %v", err)
	}
	if _, err := other.Get(ctx, "thumbnails"); err != nil {
		t.Errorf("other storage was touched: %v", err)
	}
}

func TestChildrenAndSearchByMime(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	cache := db.Cache("home::alice")

	seedCache(t, cache, []CacheEntry{
		{Path: "", Type: EntryTypeFolder},
		{Path: "files", Type: EntryTypeFolder},
		{Path: "files/Photos", Type: EntryTypeFolder},
		{Path: "files/Photos/a.jpg", Type: EntryTypeFile, MimeType: "image/jpeg"},
		{Path: "files/Photos/b.png", Type: EntryTypeFile, MimeType: "image/png"},
		{Path: "files/doc.txt", Type: EntryTypeFile, MimeType: "text/plain"},
		{Path: "files/c.jpg", Type: EntryTypeFile, MimeType: "image/jpeg"},
	})

	children, err := cache.Children(ctx, "files")
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) != 3 {
		t.Errorf("Children() returned %d entries, want 3", len(children))
	}

	tests := []struct {
		name   string
		prefix string
		mime   string
		want   int
	}{
		{name: "exact type in subfolder", prefix: "files/Photos", mime: "image/jpeg", want: 1},
		{name: "exact type whole tree", prefix: "files", mime: "image/jpeg", want: 2},
		{name: "top level type", prefix: "files", mime: "image", want: 3},
		{name: "storage root", prefix: "", mime: "text/plain", want: 1},
		{name: "no match", prefix: "files/Photos", mime: "video/mp4", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cache.SearchByMime(ctx, tt.prefix, tt.mime)
			if err != nil {
				t.Fatalf("SearchByMime() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("SearchByMime(%q, %q) returned %d entries, want %d", tt.prefix, tt.mime, len(got), tt.want)
			}
		})
	}
}

func TestUpdateFolder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	cache := db.Cache("home::alice")

	old := time.Unix(1000, 0)
	seedCache(t, cache, []CacheEntry{
		{Path: "files", Type: EntryTypeFolder, ModTime: old, ETag: "old"},
		{Path: "files/a.jpg", Type: EntryTypeFile, Size: 100},
		{Path: "files/b.jpg", Type: EntryTypeFile, Size: 50},
	})

	now := time.Unix(2000, 0)
	if err := cache.UpdateFolder(ctx, "files", now); err != nil {
		t.Fatalf("UpdateFolder() error = %v", err)
	}

	e, err := cache.Get(ctx, "files")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if e.Size != 150 {
		t.Errorf("folder size = %d, want 150", e.Size)
	}
	if !e.ModTime.Equal(now) {
		t.Errorf("folder mtime = %v, want %v", e.ModTime, now)
	}
	if e.ETag == "old" || e.ETag == "" {
		t.Errorf("folder etag not refreshed: %q", e.ETag)
	}

	// Unknown folders are ignored
	if err := cache.UpdateFolder(ctx, "missing", now); err != nil {
		t.Errorf("UpdateFolder(missing) error = %v", err)
	}
}
