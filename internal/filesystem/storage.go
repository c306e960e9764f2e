package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"gallery-thumbs/internal/database"
	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/mediatypes"
)

// ErrReadOnly is returned when writing to a read-only storage.
var ErrReadOnly = errors.New("storage is read-only")

// MetadataStore is the part of the database the storages work with.
type MetadataStore interface {
	Cache(storage string) *database.FileCache
	BeginBatch(ctx context.Context) error
	EndBatch(err error) error
	InBatch() bool
}

// Storage is one backend attached to the virtual tree. Paths are relative
// to the storage root, "" being the root itself.
type Storage interface {
	ID() string
	Owner() string
	// IsHome reports whether this is the owner's home storage.
	IsHome() bool
	IsCreatable(path string) bool
	Exists(path string) bool
	Cache() *database.FileCache
	Scanner() *Scanner
	// LocalFile returns the on-disk location of path.
	LocalFile(path string) string
	WriteFile(ctx context.Context, path string, data []byte) (*database.CacheEntry, error)
	// Delete removes path and everything below it, on disk and in the cache.
	Delete(ctx context.Context, path string) error
}

// LocalStorage is a storage backed by a local (or NFS mounted) directory.
type LocalStorage struct {
	id       string
	root     string
	owner    string
	home     bool
	readOnly bool
	store    MetadataStore
	retry    RetryConfig
	scanner  *Scanner
}

// NewHomeStorage returns the home storage of user, rooted at dataDir/user.
func NewHomeStorage(dataDir, user string, store MetadataStore) *LocalStorage {
	return &LocalStorage{
		id:    "home::" + user,
		root:  filepath.Join(dataDir, user),
		owner: user,
		home:  true,
		store: store,
		retry: DefaultRetryConfig(),
	}
}

// NewLocalStorage returns a storage rooted at root.
func NewLocalStorage(root, owner string, readOnly bool, store MetadataStore) *LocalStorage {
	return &LocalStorage{
		id:       "local::" + filepath.Clean(root),
		root:     filepath.Clean(root),
		owner:    owner,
		readOnly: readOnly,
		store:    store,
		retry:    DefaultRetryConfig(),
	}
}

func (s *LocalStorage) ID() string    { return s.id }
func (s *LocalStorage) Owner() string { return s.owner }
func (s *LocalStorage) IsHome() bool  { return s.home }
func (s *LocalStorage) Root() string  { return s.root }

func (s *LocalStorage) LocalFile(p string) string {
	if p == "" {
		return s.root
	}
	return filepath.Join(s.root, filepath.FromSlash(p))
}

// IsCreatable reports whether new entries can be created inside the folder p.
func (s *LocalStorage) IsCreatable(p string) bool {
	if s.readOnly {
		return false
	}
	local := s.LocalFile(p)
	info, err := StatWithRetry(local, s.retry)
	if err != nil || !info.IsDir() {
		return false
	}
	return unix.Access(local, unix.W_OK) == nil
}

func (s *LocalStorage) Exists(p string) bool {
	_, err := StatWithRetry(s.LocalFile(p), s.retry)
	return err == nil
}

func (s *LocalStorage) Cache() *database.FileCache {
	return s.store.Cache(s.id)
}

// Scanner returns the storage's scanner. Listeners stay attached to it
// until removed.
func (s *LocalStorage) Scanner() *Scanner {
	if s.scanner == nil {
		s.scanner = newScanner(s)
	}
	return s.scanner
}

// WriteFile atomically replaces the file at p and registers it, and any
// missing parent folders, in the cache.
func (s *LocalStorage) WriteFile(ctx context.Context, p string, data []byte) (*database.CacheEntry, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}

	start := time.Now()
	local := s.LocalFile(p)
	volume := s.retry.resolveVolume(local)

	err := writeAtomic(local, data)
	observe().ObserveOperation(volume, "write", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, err
	}

	entry, err := s.Scanner().ScanFile(ctx, p, 0)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("%s vanished after write", p)
	}
	return entry, s.updateParents(ctx, p)
}

func writeAtomic(local string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(local), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, local); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}

func (s *LocalStorage) Delete(ctx context.Context, p string) error {
	if s.readOnly {
		return ErrReadOnly
	}

	start := time.Now()
	local := s.LocalFile(p)
	err := os.RemoveAll(local)
	observe().ObserveOperation(s.retry.resolveVolume(local), "remove", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}

	if _, err := s.Cache().Remove(ctx, p); err != nil {
		return err
	}
	logging.Debug("Deleted %s from storage %s", p, s.id)
	return s.updateParents(ctx, p)
}

// updateParents refreshes the aggregates of every folder above p.
func (s *LocalStorage) updateParents(ctx context.Context, p string) error {
	now := time.Now()
	for parent := p; parent != ""; {
		parent = database.ParentPath(parent)
		if err := s.Cache().UpdateFolder(ctx, parent, now); err != nil {
			return err
		}
	}
	return nil
}

// detectMime returns the MIME type of a file, from its name when the
// extension is known and from its content otherwise.
func detectMime(name, local string) string {
	if mime, ok := mediatypes.FromFilename(name); ok {
		return mime
	}
	return sniffMime(local)
}

// joinPath joins storage relative paths, treating "" as the root.
func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	return path.Join(dir, name)
}
