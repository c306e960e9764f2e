package thumbnails

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gallery-thumbs/internal/database"
)

// newDeleteFixture creates thumbnails for alice's Photos/a.jpg, Photos/b.png
// and top.jpg.
func newDeleteFixture(t *testing.T) *fixture {
	t.Helper()

	f := newFixture(t, "alice")
	f.writeFile("alice/files/Photos/a.jpg", "aaaa")
	f.writeFile("alice/files/Photos/b.png", "bbbb")
	f.writeFile("alice/files/Photos/notes.txt", "notes")
	f.writeFile("alice/files/top.jpg", "tttt")
	f.create(CreateOptions{Params: Params{Users: []string{"alice"}}})
	f.out.Reset()
	return f
}

func TestDelete_PathMode(t *testing.T) {
	f := newDeleteFixture(t)
	a := f.fileID("/alice/files/Photos/a.jpg")
	b := f.fileID("/alice/files/Photos/b.png")
	top := f.fileID("/alice/files/top.jpg")

	stats, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Path: "/alice/files/Photos"}, Yes: true})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if f.thumbnailExists("alice", a) || f.thumbnailExists("alice", b) {
		t.Error("thumbnails below the path survived")
	}
	if !f.thumbnailExists("alice", top) {
		t.Error("thumbnail outside the path was deleted")
	}
	if stats.Images != 2 || stats.Operations != 2 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want 2 images and 2 deletions", stats)
	}
	// two 9 byte renditions
	if stats.Size != 18 {
		t.Errorf("Size = %d, want 18", stats.Size)
	}

	out := f.out.String()
	for _, want := range []string{
		"Found images of media type image/jpeg",
		"Found images of media type image/png",
		"/alice/files/Photos/a.jpg deleted!",
		"Space saved",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDelete_PathModeMissingThumbnails(t *testing.T) {
	f := newFixture(t, "alice")
	f.writeFile("alice/files/a.jpg", "aaaa")

	stats, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Path: "/alice/files"}, Yes: true})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	// Nothing was scanned yet, so the search finds nothing
	if stats.Images != 0 {
		t.Errorf("Images = %d, want 0", stats.Images)
	}

	f.create(CreateOptions{Params: Params{Users: []string{"alice"}}})
	home, _ := f.mounts.Home("alice")
	if err := home.Delete(f.ctx, ThumbnailsFolder); err != nil {
		t.Fatal(err)
	}
	f.out.Reset()

	stats, err = Delete(f.ctx, f.env, DeleteOptions{Params: Params{Path: "/alice/files"}, Yes: true})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if stats.Images != 1 || stats.Operations != 0 {
		t.Errorf("stats = %+v, want 1 image and no deletion", stats)
	}
	if !strings.Contains(f.out.String(), "No thumbnails found for [ID: ") {
		t.Errorf("output:\n%s", f.out)
	}
}

func TestDelete_ConfirmationDeclined(t *testing.T) {
	f := newDeleteFixture(t)
	a := f.fileID("/alice/files/Photos/a.jpg")
	f.answer = false

	stats, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Users: []string{"alice"}, Path: "/alice/files/Photos"}})

	if !errors.Is(err, ErrInput) || err.Error() != "Operation aborted" {
		t.Fatalf("Delete() error = %v, want Operation aborted", err)
	}
	if !f.thumbnailExists("alice", a) {
		t.Error("thumbnail deleted although the confirmation was declined")
	}
	if stats.Images != 0 || stats.Operations != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want zero counters", stats)
	}
	want := "Are you sure you want to delete the thumbnails for files in this path: /alice/files/Photos?"
	if !slices.Equal(f.asked, []string{want}) {
		t.Errorf("asked %q, want %q", f.asked, want)
	}
	if !strings.Contains(f.out.String(), "Operation aborted") {
		t.Errorf("output:\n%s", f.out)
	}
}

func TestDelete_ConfirmationQuestions(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   string
	}{
		{name: "path", params: Params{Path: "/alice/files"}, want: "Are you sure you want to delete the thumbnails for files in this path: /alice/files?"},
		{name: "all", params: Params{All: true}, want: "Are you sure you want to delete the thumbnails for all users?"},
		{name: "list", params: Params{Users: []string{"alice", "bob"}}, want: "Are you sure you want to delete the thumbnails for alice,bob?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "alice", "bob")
			if _, err := Delete(f.ctx, f.env, DeleteOptions{Params: tt.params}); !errors.Is(err, ErrInput) {
				t.Fatalf("Delete() error = %v, want ErrInput", err)
			}
			if !slices.Equal(f.asked, []string{tt.want}) {
				t.Errorf("asked %q, want %q", f.asked, tt.want)
			}
		})
	}
}

func TestDelete_UserMode(t *testing.T) {
	f := newDeleteFixture(t)
	f.answer = true

	stats, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Users: []string{"alice"}}})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(f.dataDir, "alice", ThumbnailsFolder)); !os.IsNotExist(err) {
		t.Errorf("thumbnails folder still exists: %v", err)
	}
	if stats.Images != 3 || stats.Operations != 3 {
		t.Errorf("stats = %+v, want 3 images and 3 deletions", stats)
	}
	if stats.Size != 27 {
		t.Errorf("Size = %d, want 27", stats.Size)
	}
	if !strings.Contains(f.out.String(), "Deleted all thumbnails for alice") {
		t.Errorf("output:\n%s", f.out)
	}

	f.out.Reset()
	stats, err = Delete(f.ctx, f.env, DeleteOptions{Params: Params{Users: []string{"alice"}}, Yes: true})
	if err != nil {
		t.Fatalf("second Delete() error = %v", err)
	}
	if stats.Images != 0 {
		t.Errorf("Images = %d, want 0", stats.Images)
	}
	out := f.out.String()
	if !strings.Contains(out, "No thumbnails found for alice") || strings.Contains(out, "Space saved") {
		t.Errorf("output:\n%s", out)
	}
}

func TestDelete_CacheOnly(t *testing.T) {
	f := newDeleteFixture(t)
	home, _ := f.mounts.Home("alice")

	stats, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Users: []string{"alice"}}, CacheOnly: true, Yes: true})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(f.dataDir, "alice", ThumbnailsFolder)); err != nil {
		t.Errorf("thumbnails removed from disk: %v", err)
	}
	if _, err := home.Cache().Get(f.ctx, ThumbnailsFolder); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("thumbnails still cached, Get() error = %v", err)
	}
	if _, err := home.Cache().Get(f.ctx, "files/top.jpg"); err != nil {
		t.Errorf("files were dropped from the cache: %v", err)
	}
	if stats.Operations != 0 {
		t.Errorf("Operations = %d, want 0", stats.Operations)
	}
	if !strings.Contains(f.out.String(), "Removing all thumbnails for alice, from the cache") {
		t.Errorf("output:\n%s", f.out)
	}
}

func TestDelete_Cancellation(t *testing.T) {
	f := newDeleteFixture(t)
	f.cancel.Cancel()

	stats, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Path: "/alice/files"}, Yes: true})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if stats.Images != 0 || stats.Operations != 0 {
		t.Errorf("stats = %+v, want nothing done", stats)
	}
	if !f.thumbnailExists("alice", f.fileID("/alice/files/top.jpg")) {
		t.Error("thumbnail deleted after cancellation")
	}
}

func TestDelete_UnknownUser(t *testing.T) {
	f := newFixture(t, "alice")

	stats, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Users: []string{"carol"}}, Yes: true})
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if stats.Images != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if !strings.Contains(f.out.String(), "Unknown user carol") {
		t.Errorf("output:\n%s", f.out)
	}
}

func TestDelete_QuietRunKeepsSummary(t *testing.T) {
	f := newDeleteFixture(t)

	if _, err := Delete(f.ctx, f.env, DeleteOptions{Params: Params{Path: "/alice/files/Photos"}, Yes: true, Quiet: true}); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	out := f.out.String()
	if !strings.Contains(out, "Space saved") {
		t.Errorf("quiet run output missing the summary:\n%s", out)
	}
	if strings.Contains(out, "Found images of media type") || strings.Contains(out, "deleted!") {
		t.Errorf("quiet run printed progress lines:\n%s", out)
	}
}
