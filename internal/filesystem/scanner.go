package filesystem

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"gallery-thumbs/internal/database"
	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/mediatypes"
)

// ScanFlags control which cached values a scan may keep.
type ScanFlags int

const (
	// ReuseEtag keeps the cached etag of entries whose mtime did not change.
	ReuseEtag ScanFlags = 1 << iota
	// ReuseSize keeps the cached size of folders until their children are counted.
	ReuseSize
)

// ScanMode selects how deep a scan goes.
type ScanMode int

const (
	// ScanShallow scans a folder and its direct children.
	ScanShallow ScanMode = iota
	// ScanRecursive scans every descendant.
	ScanRecursive
)

// ScanListener receives the scanner's events. Paths are relative to the
// scanned storage.
type ScanListener interface {
	// PostScanFile fires once a file is added to or confirmed in the cache.
	PostScanFile(path string)
	// PostScanFolder is the folder equivalent of PostScanFile.
	PostScanFolder(path string)
	// AddToCache fires when a cache entry is created or changed.
	AddToCache(path string)
	// RemoveFromCache fires when a cache entry is removed.
	RemoveFromCache(path string)
}

// Scanner reconciles a storage's cache with what is on disk.
type Scanner struct {
	storage         *LocalStorage
	useTransactions bool
	listeners       []ScanListener
}

func newScanner(s *LocalStorage) *Scanner {
	return &Scanner{storage: s, useTransactions: true}
}

// SetUseTransactions turns the per-folder transactions on or off. Callers
// that wrap a whole scan in their own transaction turn them off.
func (s *Scanner) SetUseTransactions(use bool) {
	s.useTransactions = use
}

// Listen registers l for scan events.
func (s *Scanner) Listen(l ScanListener) {
	s.listeners = append(s.listeners, l)
}

// Unlisten removes a listener registered with Listen.
func (s *Scanner) Unlisten(l ScanListener) {
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Scanner) emitPostScan(entry *database.CacheEntry) {
	for _, l := range s.listeners {
		if entry.IsFolder() {
			l.PostScanFolder(entry.Path)
		} else {
			l.PostScanFile(entry.Path)
		}
	}
}

func (s *Scanner) emitAdd(entry *database.CacheEntry) {
	observe().ObserveScanEntry(string(entry.Type), "added")
	for _, l := range s.listeners {
		l.AddToCache(entry.Path)
	}
}

func (s *Scanner) emitRemove(entry *database.CacheEntry) {
	observe().ObserveScanEntry(string(entry.Type), "removed")
	for _, l := range s.listeners {
		l.RemoveFromCache(entry.Path)
	}
}

// Scan scans path and, for folders, its children (all descendants with
// ScanRecursive). It returns the total size of path, or 0 if it does not
// exist on disk.
func (s *Scanner) Scan(ctx context.Context, path string, mode ScanMode, flags ScanFlags) (int64, error) {
	start := time.Now()
	defer func() { observe().ObserveScanDuration(time.Since(start).Seconds()) }()

	entry, err := s.ScanFile(ctx, path, flags)
	if err != nil || entry == nil {
		return 0, err
	}
	if !entry.IsFolder() {
		return entry.Size, nil
	}
	return s.scanChildren(ctx, entry, mode, flags)
}

// ScanFile scans the single entry at path, registering missing parent
// folders first. It returns nil if path does not exist.
func (s *Scanner) ScanFile(ctx context.Context, path string, flags ScanFlags) (*database.CacheEntry, error) {
	if err := s.ensureParents(ctx, path, flags); err != nil {
		return nil, err
	}
	return s.scanEntry(ctx, path, flags)
}

func (s *Scanner) ensureParents(ctx context.Context, path string, flags ScanFlags) error {
	if path == "" {
		return nil
	}

	var parents []string
	for p := database.ParentPath(path); ; p = database.ParentPath(p) {
		parents = append(parents, p)
		if p == "" {
			break
		}
	}

	// Root first
	for i := len(parents) - 1; i >= 0; i-- {
		_, err := s.storage.Cache().Get(ctx, parents[i])
		if err == nil {
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}
		if _, err := s.scanEntry(ctx, parents[i], flags); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) scanEntry(ctx context.Context, path string, flags ScanFlags) (*database.CacheEntry, error) {
	cache := s.storage.Cache()

	existing, err := cache.Get(ctx, path)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	local := s.storage.LocalFile(path)
	info, err := StatWithRetry(local, s.storage.retry)
	if os.IsNotExist(err) {
		if existing != nil {
			if _, err := cache.Remove(ctx, path); err != nil {
				return nil, err
			}
			s.emitRemove(existing)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	entry := s.entryFromInfo(path, local, info, existing, flags)
	observe().ObserveScanEntry(string(entry.Type), "scanned")

	if existing != nil && !entryChanged(existing, entry) {
		s.emitPostScan(existing)
		return existing, nil
	}

	id, err := cache.Put(ctx, entry)
	if err != nil {
		return nil, err
	}
	entry.ID = id
	s.emitAdd(entry)
	s.emitPostScan(entry)
	return entry, nil
}

func (s *Scanner) entryFromInfo(path, local string, info os.FileInfo, existing *database.CacheEntry, flags ScanFlags) *database.CacheEntry {
	entry := &database.CacheEntry{
		Storage: s.storage.ID(),
		Path:    path,
		Parent:  database.ParentPath(path),
		ModTime: info.ModTime().Truncate(time.Second),
	}

	unchanged := existing != nil && existing.ModTime.Equal(entry.ModTime)

	if info.IsDir() {
		entry.Type = database.EntryTypeFolder
		entry.MimeType = mediatypes.FolderMimeType
		entry.Size = -1
		if existing != nil && flags&ReuseSize != 0 {
			entry.Size = existing.Size
		}
	} else {
		entry.Type = database.EntryTypeFile
		entry.Size = info.Size()
		unchanged = unchanged && existing.Size == entry.Size
		if unchanged && existing.MimeType != "" {
			entry.MimeType = existing.MimeType
		} else {
			entry.MimeType = detectMime(path, local)
		}
	}

	if unchanged && flags&ReuseEtag != 0 {
		entry.ETag = existing.ETag
	} else {
		entry.ETag = fileETag(path, info)
	}
	return entry
}

func entryChanged(existing, entry *database.CacheEntry) bool {
	return existing.Type != entry.Type ||
		existing.Size != entry.Size ||
		!existing.ModTime.Equal(entry.ModTime) ||
		existing.ETag != entry.ETag ||
		existing.MimeType != entry.MimeType
}

// scanChildren reconciles the direct children of folder, recursing into
// subfolders in ScanRecursive mode, and returns the folder's total size.
func (s *Scanner) scanChildren(ctx context.Context, folder *database.CacheEntry, mode ScanMode, flags ScanFlags) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var (
		size       int64
		subfolders []*database.CacheEntry
	)

	err := s.inTransaction(ctx, func() error {
		local := s.storage.LocalFile(folder.Path)
		dirEntries, err := ReadDirWithRetry(local, s.storage.retry)
		if err != nil {
			return fmt.Errorf("failed to read directory %s: %w", folder.Path, err)
		}

		cached, err := s.storage.Cache().Children(ctx, folder.Path)
		if err != nil {
			return err
		}
		vanished := make(map[string]database.CacheEntry, len(cached))
		for _, c := range cached {
			vanished[c.Name] = c
		}

		for _, de := range dirEntries {
			name := de.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			delete(vanished, name)

			child, err := s.scanEntry(ctx, joinPath(folder.Path, name), flags)
			if err != nil {
				return err
			}
			if child == nil {
				continue
			}
			if child.IsFolder() {
				subfolders = append(subfolders, child)
			} else {
				size += child.Size
			}
		}

		for _, gone := range vanished {
			if _, err := s.storage.Cache().Remove(ctx, gone.Path); err != nil {
				return err
			}
			logging.Debug("Removed vanished entry %s from storage %s", gone.Path, s.storage.ID())
			s.emitRemove(&gone)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, sub := range subfolders {
		if mode == ScanRecursive {
			subSize, err := s.scanChildren(ctx, sub, mode, flags)
			if err != nil {
				return 0, err
			}
			size += subSize
		} else if sub.Size > 0 {
			size += sub.Size
		}
	}

	if folder.Size != size {
		folder.Size = size
		id, err := s.storage.Cache().Put(ctx, folder)
		if err != nil {
			return 0, err
		}
		folder.ID = id
		s.emitAdd(folder)
	}
	return size, nil
}

// inTransaction runs fn in a batch transaction when the scanner manages its
// own transactions and no batch is open yet.
func (s *Scanner) inTransaction(ctx context.Context, fn func() error) error {
	if !s.useTransactions || s.storage.store.InBatch() {
		return fn()
	}
	if err := s.storage.store.BeginBatch(ctx); err != nil {
		return err
	}
	return s.storage.store.EndBatch(fn())
}

// fileETag derives an etag from what identifies a version of the file.
func fileETag(path string, info os.FileInfo) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%d", path, info.ModTime().UnixNano(), info.Size())))
	return hex.EncodeToString(sum[:])
}

// sniffMime detects the MIME type of a file from its content.
func sniffMime(local string) string {
	mt, err := mimetype.DetectFile(local)
	if err != nil {
		return mediatypes.OctetStream
	}
	mime, _, _ := strings.Cut(mt.String(), ";")
	return mime
}
