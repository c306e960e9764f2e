package thumbnails

import (
	"context"
	"fmt"

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/locking"
	"gallery-thumbs/internal/logging"
)

// NodeVisitor is called back by GalleryScanner for every entry the storage
// scanner confirms in the cache. Paths are relative to mount.
type NodeVisitor interface {
	OnFile(path string, mount *filesystem.Mount, user string)
	OnFolder(path string, mount *filesystem.Mount, user string)
}

// GalleryScanner walks one mount of a user, refreshing its cache and handing
// every entry to a NodeVisitor.
type GalleryScanner struct {
	tx      Transactor
	changes ChangeSet
	locks   locking.Provider
	cancel  *CancelFlag
}

// NewGalleryScanner returns a scanner recording cache changes into changes.
// When locks is not transactional each scan runs in a single transaction
// opened through tx.
func NewGalleryScanner(tx Transactor, changes ChangeSet, locks locking.Provider, cancel *CancelFlag) *GalleryScanner {
	if locks == nil {
		locks = locking.NoopProvider{}
	}
	return &GalleryScanner{tx: tx, changes: changes, locks: locks, cancel: cancel}
}

// Scan recursively scans path, an absolute virtual path at or above the
// mount, on storage and returns the scanned size. Once the cancel flag is
// set the walk stops at the next entry and what was scanned so far is kept.
func (s *GalleryScanner) Scan(ctx context.Context, storage filesystem.Storage, mount *filesystem.Mount, path, user string, visitor NodeVisitor) (size int64, err error) {
	if s.cancel.IsSet() {
		return 0, nil
	}

	relative := mount.InternalPath(path)
	scanner := storage.Scanner()
	scanner.SetUseTransactions(false)

	scanCtx, stop := context.WithCancel(ctx)
	defer stop()

	l := &scanListener{
		mount:   mount,
		user:    user,
		visitor: visitor,
		changes: s.changes,
		cancel:  s.cancel,
		stop:    stop,
	}
	scanner.Listen(l)
	defer scanner.Unlisten(l)

	if !s.locks.Transactional() {
		if err := s.tx.BeginBatch(ctx); err != nil {
			return 0, fmt.Errorf("failed to begin scan transaction: %w", err)
		}
		defer func() { err = s.tx.EndBatch(err) }()
	}

	logging.Debug("Scanning %s (storage %s, internal path %q)", path, storage.ID(), relative)
	size, err = scanner.Scan(scanCtx, relative, filesystem.ScanRecursive, filesystem.ReuseEtag|filesystem.ReuseSize)
	if err != nil && s.cancel.IsSet() && scanCtx.Err() != nil && ctx.Err() == nil {
		logging.Info("Scan of %s interrupted", path)
		return size, nil
	}
	if err != nil {
		return 0, err
	}
	return size, nil
}

// scanListener forwards the storage scanner's events.
type scanListener struct {
	mount   *filesystem.Mount
	user    string
	visitor NodeVisitor
	changes ChangeSet
	cancel  *CancelFlag
	stop    context.CancelFunc
}

func (l *scanListener) interrupted() bool {
	if l.cancel.IsSet() {
		l.stop()
		return true
	}
	return false
}

func (l *scanListener) PostScanFile(path string) {
	if l.interrupted() {
		return
	}
	l.visitor.OnFile(path, l.mount, l.user)
}

func (l *scanListener) PostScanFolder(path string) {
	if l.interrupted() {
		return
	}
	l.visitor.OnFolder(path, l.mount, l.user)
}

func (l *scanListener) AddToCache(path string) {
	l.changes.AddChange(filesystem.NormalizePath(l.mount.MountPoint() + path))
}

func (l *scanListener) RemoveFromCache(path string) {
	l.changes.AddChange(filesystem.NormalizePath(l.mount.MountPoint() + path))
}
