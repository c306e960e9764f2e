package filesystem

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"gallery-thumbs/internal/database"
)

// newTestStore opens a fresh metadata database in a temp dir.
func newTestStore(t *testing.T) *database.Database {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "gallery.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// writeTestFile creates a file (and its parents) below root.
func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()

	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestNewHomeStorage(t *testing.T) {
	s := NewHomeStorage("/srv/data", "alice", nil)

	if s.ID() != "home::alice" {
		t.Errorf("ID() = %q, want home::alice", s.ID())
	}
	if !s.IsHome() {
		t.Error("IsHome() = false, want true")
	}
	if s.Owner() != "alice" {
		t.Errorf("Owner() = %q, want alice", s.Owner())
	}
	if got := s.LocalFile("files/a.jpg"); got != "/srv/data/alice/files/a.jpg" {
		t.Errorf("LocalFile() = %q", got)
	}
	if got := s.LocalFile(""); got != "/srv/data/alice" {
		t.Errorf("LocalFile(\"\") = %q", got)
	}
}

func TestLocalStorage_WriteFile(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "alice"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := NewHomeStorage(dataDir, "alice", store)

	entry, err := s.WriteFile(ctx, "thumbnails/7/400-200.jpg", []byte("preview"))
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if entry.Size != 7 {
		t.Errorf("entry.Size = %d, want 7", entry.Size)
	}
	if entry.MimeType != "image/jpeg" {
		t.Errorf("entry.MimeType = %q, want image/jpeg", entry.MimeType)
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "alice", "thumbnails", "7", "400-200.jpg"))
	if err != nil || string(data) != "preview" {
		t.Fatalf("file on disk = %q, %v", data, err)
	}

	for _, p := range []string{"", "thumbnails", "thumbnails/7"} {
		folder, err := s.Cache().Get(ctx, p)
		if err != nil {
			t.Fatalf("Get(%q) error = %v", p, err)
		}
		if !folder.IsFolder() {
			t.Errorf("%q should be a folder", p)
		}
		if folder.Size != 7 {
			t.Errorf("%q size = %d, want 7", p, folder.Size)
		}
	}
}

func TestLocalStorage_ReadOnly(t *testing.T) {
	root := t.TempDir()
	s := NewLocalStorage(root, "alice", true, newTestStore(t))

	if _, err := s.WriteFile(context.Background(), "a.jpg", []byte("x")); !errors.Is(err, ErrReadOnly) {
		t.Errorf("WriteFile() error = %v, want ErrReadOnly", err)
	}
	if err := s.Delete(context.Background(), "a.jpg"); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Delete() error = %v, want ErrReadOnly", err)
	}
	if s.IsCreatable("") {
		t.Error("IsCreatable() = true on a read-only storage")
	}
}

func TestLocalStorage_IsCreatable(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "file.txt", "x")
	s := NewLocalStorage(root, "alice", false, newTestStore(t))

	if !s.IsCreatable("") {
		t.Error("IsCreatable(\"\") = false, want true")
	}
	if s.IsCreatable("missing") {
		t.Error("IsCreatable(missing) = true, want false")
	}
	if s.IsCreatable("file.txt") {
		t.Error("IsCreatable(file) = true, want false")
	}
}

func TestLocalStorage_Delete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewLocalStorage(root, "alice", false, newTestStore(t))

	if _, err := s.WriteFile(ctx, "thumbnails/1/a.jpg", []byte("aaaa")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.WriteFile(ctx, "thumbnails/2/b.jpg", []byte("bb")); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(ctx, "thumbnails/1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if s.Exists("thumbnails/1") {
		t.Error("thumbnails/1 still exists on disk")
	}
	if _, err := s.Cache().Get(ctx, "thumbnails/1/a.jpg"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("cache entry of deleted file: err = %v, want ErrNotFound", err)
	}
	thumbs, err := s.Cache().Get(ctx, "thumbnails")
	if err != nil {
		t.Fatal(err)
	}
	if thumbs.Size != 2 {
		t.Errorf("thumbnails size = %d, want 2", thumbs.Size)
	}
}

func TestDetectMime(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "photo.JPG", "not really a jpeg")
	writeTestFile(t, dir, "noext", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

	tests := []struct {
		name string
		want string
	}{
		{name: "photo.JPG", want: "image/jpeg"},
		{name: "noext", want: "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMime(tt.name, filepath.Join(dir, tt.name)); got != tt.want {
				t.Errorf("detectMime() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJoinPath(t *testing.T) {
	if got := joinPath("", "files"); got != "files" {
		t.Errorf("joinPath(\"\", files) = %q", got)
	}
	if got := joinPath("files", "a.jpg"); got != "files/a.jpg" {
		t.Errorf("joinPath(files, a.jpg) = %q", got)
	}
}

type operationObserver struct {
	noopObserver
	ops []string
}

func (o *operationObserver) ObserveOperation(volume, operation string, _ float64, _ error) {
	o.ops = append(o.ops, volume+":"+operation)
}

func TestLocalStorage_OperationVolumes(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataDir, "alice"), 0o755); err != nil {
		t.Fatal(err)
	}
	s := NewHomeStorage(dataDir, "alice", newTestStore(t))
	s.retry.VolumeResolver = NewVolumeResolver(map[string]string{"data": dataDir})

	obs := &operationObserver{}
	SetObserver(obs)
	t.Cleanup(func() { SetObserver(nil) })

	if _, err := s.WriteFile(ctx, "thumbnails/7/400-200.jpg", []byte("preview")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := s.Delete(ctx, "thumbnails/7"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	for _, want := range []string{"data:write", "data:remove"} {
		if !slices.Contains(obs.ops, want) {
			t.Errorf("observed %v, missing %s", obs.ops, want)
		}
	}
}
