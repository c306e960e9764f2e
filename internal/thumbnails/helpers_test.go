package thumbnails

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"gallery-thumbs/internal/database"
	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/locking"
	"gallery-thumbs/internal/users"
)

type encryption bool

func (e encryption) IsEnabled() bool { return bool(e) }

// fakePreviews stores a small placeholder rendition per file in the home
// storage, the way the real generator lays previews out.
type fakePreviews struct {
	root      *filesystem.Root
	supported []string
	// unrenderable files make Generate return false, broken ones an error
	unrenderable map[string]bool
	broken       map[string]bool
	generated    []string
	// nodes maps the path of every node handed to Preview to its id
	nodes      map[string]int64
	deletes    int
	onGenerate func(relPath string)
}

func (f *fakePreviews) SupportedMimeTypes() []string { return slices.Clone(f.supported) }

func (f *fakePreviews) IsSupported(mime string) bool { return slices.Contains(f.supported, mime) }

func (f *fakePreviews) Preview(_ context.Context, user string, node *filesystem.Node) (Preview, error) {
	home, ok := f.root.Mounts().Home(user)
	if !ok {
		return nil, fmt.Errorf("no home for %s", user)
	}
	relPath := strings.TrimPrefix(node.Path(), "/"+user+"/files/")
	f.nodes[node.Path()] = node.ID()
	return &fakePreview{
		f:       f,
		home:    home,
		id:      node.ID(),
		relPath: relPath,
		folder:  fmt.Sprintf("%s/%d", ThumbnailsFolder, node.ID()),
	}, nil
}

type fakePreview struct {
	f       *fakePreviews
	home    *filesystem.LocalStorage
	id      int64
	relPath string
	folder  string
}

func (p *fakePreview) FileID() int64 { return p.id }

func (p *fakePreview) IsCached(context.Context) (bool, error) {
	return p.home.Exists(p.folder), nil
}

func (p *fakePreview) DeleteAll(ctx context.Context) error {
	p.f.deletes++
	if !p.home.Exists(p.folder) {
		return nil
	}
	return p.home.Delete(ctx, p.folder)
}

func (p *fakePreview) Generate(ctx context.Context, maxX, maxY int, _ bool) (bool, error) {
	if p.f.broken[p.relPath] {
		return false, errors.New("decoder exploded")
	}
	if p.f.unrenderable[p.relPath] {
		return false, nil
	}
	name := fmt.Sprintf("%s/%d-%d.jpg", p.folder, maxX, maxY)
	if _, err := p.home.WriteFile(ctx, name, []byte("thumbnail")); err != nil {
		return false, err
	}
	p.f.generated = append(p.f.generated, p.relPath)
	if p.f.onGenerate != nil {
		p.f.onGenerate(p.relPath)
	}
	return true, nil
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	dataDir  string
	db       *database.Database
	mounts   *filesystem.MountManager
	root     *filesystem.Root
	previews *fakePreviews
	out      *bytes.Buffer
	cancel   *CancelFlag
	answer   bool
	asked    []string
	env      Env
}

// newFixture creates a data directory with a files folder for every user
// and an Env wired to real storages, a real database and file locks.
func newFixture(t *testing.T, userNames ...string) *fixture {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "gallery.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	locks, err := locking.NewFileProvider(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileProvider() error = %v", err)
	}

	dataDir := t.TempDir()
	for _, u := range userNames {
		if err := os.MkdirAll(filepath.Join(dataDir, u, "files"), 0o755); err != nil {
			t.Fatal(err)
		}
	}

	mounts := filesystem.NewMountManager(dataDir, db, nil)
	root := filesystem.NewRoot(mounts, locks)

	f := &fixture{
		t:       t,
		ctx:     context.Background(),
		dataDir: dataDir,
		db:      db,
		mounts:  mounts,
		root:    root,
		previews: &fakePreviews{
			root:         root,
			supported:    []string{"image/jpeg", "image/png"},
			unrenderable: map[string]bool{},
			broken:       map[string]bool{},
			nodes:        map[string]int64{},
		},
		out:    &bytes.Buffer{},
		cancel: &CancelFlag{},
	}
	f.env = Env{
		Out:        f.out,
		Users:      users.NewManager(dataDir),
		FS:         root,
		Previews:   f.previews,
		Encryption: encryption(false),
		Tx:         db,
		Changes:    filesystem.NewChangePropagator(mounts),
		Locks:      locks,
		Confirm: ConfirmFunc(func(q string) (bool, error) {
			f.asked = append(f.asked, q)
			return f.answer, nil
		}),
		Cancel: f.cancel,
	}
	return f
}

func (f *fixture) writeFile(rel, content string) {
	f.t.Helper()

	full := filepath.Join(f.dataDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		f.t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		f.t.Fatal(err)
	}
}

// fileID returns the cache id of the file at the virtual path p.
func (f *fixture) fileID(p string) int64 {
	f.t.Helper()

	node, err := f.root.Get(f.ctx, p)
	if err != nil {
		f.t.Fatalf("Get(%s) error = %v", p, err)
	}
	return node.ID()
}

func (f *fixture) thumbnailExists(user string, id int64) bool {
	_, err := os.Stat(filepath.Join(f.dataDir, user, ThumbnailsFolder, fmt.Sprint(id)))
	return err == nil
}

func (f *fixture) create(opts CreateOptions) *RunStatistics {
	f.t.Helper()

	stats, err := Create(f.ctx, f.env, opts)
	if err != nil {
		f.t.Fatalf("Create() error = %v\n%s", err, f.out)
	}
	return stats
}
