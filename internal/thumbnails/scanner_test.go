package thumbnails

import (
	"context"
	"errors"
	"slices"
	"testing"

	"gallery-thumbs/internal/database"
	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/locking"
)

type recordingVisitor struct {
	files   []string
	folders []string
	onFile  func(path string)
}

func (v *recordingVisitor) OnFile(path string, mount *filesystem.Mount, _ string) {
	v.files = append(v.files, mount.MountPoint()+path)
	if v.onFile != nil {
		v.onFile(path)
	}
}

func (v *recordingVisitor) OnFolder(path string, mount *filesystem.Mount, _ string) {
	v.folders = append(v.folders, mount.MountPoint()+path)
}

type countingTx struct {
	db      *database.Database
	begins  int
	ends    int
	lastErr error
}

func (c *countingTx) BeginBatch(ctx context.Context) error {
	c.begins++
	return c.db.BeginBatch(ctx)
}

func (c *countingTx) EndBatch(err error) error {
	c.ends++
	c.lastErr = err
	return c.db.EndBatch(err)
}

func scanHome(t *testing.T, f *fixture, s *GalleryScanner, v NodeVisitor) int64 {
	t.Helper()

	if err := f.root.Setup("alice"); err != nil {
		t.Fatal(err)
	}
	mount := f.root.Find("/alice/files")
	size, err := s.Scan(f.ctx, mount.Storage(), mount, "/alice/files", "alice", v)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	return size
}

func TestGalleryScanner_Scan(t *testing.T) {
	f := newFixture(t, "alice")
	f.writeFile("alice/files/Photos/a.jpg", "aaaa")
	f.writeFile("alice/files/doc.txt", "hello")

	changes := filesystem.NewChangePropagator(f.mounts)
	tx := &countingTx{db: f.db}
	s := NewGalleryScanner(tx, changes, f.env.Locks, nil)
	v := &recordingVisitor{}

	size := scanHome(t, f, s, v)

	if size != 9 {
		t.Errorf("size = %d, want 9", size)
	}
	for _, want := range []string{"/alice/files/Photos/a.jpg", "/alice/files/doc.txt"} {
		if !slices.Contains(v.files, want) {
			t.Errorf("files %v missing %s", v.files, want)
		}
	}
	for _, want := range []string{"/alice/files", "/alice/files/Photos"} {
		if !slices.Contains(v.folders, want) {
			t.Errorf("folders %v missing %s", v.folders, want)
		}
	}
	if !slices.Contains(changes.Changes(), "/alice/files/Photos/a.jpg") {
		t.Errorf("changes %v missing the new file", changes.Changes())
	}
	if tx.begins != 1 || tx.ends != 1 || tx.lastErr != nil {
		t.Errorf("transaction begins=%d ends=%d err=%v, want one committed transaction", tx.begins, tx.ends, tx.lastErr)
	}
	if f.db.InBatch() {
		t.Error("transaction left open")
	}
}

func TestGalleryScanner_TransactionalLocking(t *testing.T) {
	f := newFixture(t, "alice")
	f.writeFile("alice/files/a.jpg", "aaaa")

	tx := &countingTx{db: f.db}
	s := NewGalleryScanner(tx, filesystem.NewChangePropagator(f.mounts), locking.NewDBProvider(f.db), nil)
	scanHome(t, f, s, &recordingVisitor{})

	if tx.begins != 0 {
		t.Errorf("BeginBatch called %d times with a transactional lock provider", tx.begins)
	}
}

func TestGalleryScanner_ListenerRemoved(t *testing.T) {
	f := newFixture(t, "alice")
	f.writeFile("alice/files/a.jpg", "aaaa")

	s := NewGalleryScanner(f.db, filesystem.NewChangePropagator(f.mounts), f.env.Locks, nil)
	v := &recordingVisitor{}
	scanHome(t, f, s, v)
	seen := len(v.files)

	home, _ := f.mounts.Home("alice")
	if _, err := home.WriteFile(f.ctx, "files/b.jpg", []byte("bb")); err != nil {
		t.Fatal(err)
	}
	if len(v.files) != seen {
		t.Errorf("visitor called after the scan: %v", v.files[seen:])
	}
}

func TestGalleryScanner_Cancel(t *testing.T) {
	t.Run("before the scan", func(t *testing.T) {
		f := newFixture(t, "alice")
		f.writeFile("alice/files/a.jpg", "aaaa")

		flag := &CancelFlag{}
		flag.Cancel()
		tx := &countingTx{db: f.db}
		v := &recordingVisitor{}
		s := NewGalleryScanner(tx, filesystem.NewChangePropagator(f.mounts), f.env.Locks, flag)

		if size := scanHome(t, f, s, v); size != 0 {
			t.Errorf("size = %d, want 0", size)
		}
		if len(v.files) != 0 || len(v.folders) != 0 || tx.begins != 0 {
			t.Errorf("canceled scan did work: files=%v folders=%v begins=%d", v.files, v.folders, tx.begins)
		}
	})

	t.Run("during the scan", func(t *testing.T) {
		f := newFixture(t, "alice")
		f.writeFile("alice/files/Photos/a.jpg", "aaaa")
		f.writeFile("alice/files/Photos/b.jpg", "bbbb")
		f.writeFile("alice/files/Photos/Deeper/c.jpg", "cccc")

		flag := &CancelFlag{}
		tx := &countingTx{db: f.db}
		v := &recordingVisitor{onFile: func(string) { flag.Cancel() }}
		s := NewGalleryScanner(tx, filesystem.NewChangePropagator(f.mounts), f.env.Locks, flag)

		scanHome(t, f, s, v)

		if len(v.files) != 1 {
			t.Errorf("files = %v, want only the first one", v.files)
		}
		if tx.lastErr != nil {
			t.Errorf("interrupted scan rolled back: %v", tx.lastErr)
		}

		_, err := f.db.Cache("home::alice").Get(f.ctx, "files/Photos/Deeper/c.jpg")
		if !errors.Is(err, database.ErrNotFound) {
			t.Errorf("unvisited file was cached, Get() error = %v", err)
		}
	})
}
