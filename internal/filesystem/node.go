package filesystem

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"

	"gallery-thumbs/internal/database"
	"gallery-thumbs/internal/locking"
)

// ErrNotFound is returned when a path does not resolve to a node.
var ErrNotFound = errors.New("node not found")

// NormalizePath cleans an absolute virtual path. The result has a leading
// slash and no trailing slash, except for the root "/".
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

// IsValidPath reports whether p is usable as a virtual path: absolute,
// without NUL bytes and without ".." segments.
func IsValidPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") || strings.ContainsRune(p, 0) {
		return false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return false
		}
	}
	return true
}

// Root is the entry point to the virtual tree.
type Root struct {
	mounts *MountManager
	locks  locking.Provider
}

// NewRoot returns a root resolving paths through mounts and protecting
// mutations with locks.
func NewRoot(mounts *MountManager, locks locking.Provider) *Root {
	if locks == nil {
		locks = locking.NoopProvider{}
	}
	return &Root{mounts: mounts, locks: locks}
}

// Mounts returns the mount manager.
func (r *Root) Mounts() *MountManager { return r.mounts }

// Locks returns the locking provider.
func (r *Root) Locks() locking.Provider { return r.locks }

// Setup registers the mounts of user. See MountManager.Setup.
func (r *Root) Setup(user string) error { return r.mounts.Setup(user) }

// Find returns the mount containing p.
func (r *Root) Find(p string) *Mount { return r.mounts.Find(p) }

// FindIn returns the mounts strictly below p.
func (r *Root) FindIn(p string) []*Mount { return r.mounts.FindIn(p) }

func (r *Root) resolve(p string) (*Mount, string, error) {
	p = NormalizePath(p)
	m := r.mounts.Find(p)
	if m == nil || m.Storage() == nil {
		return nil, "", ErrNotFound
	}
	return m, m.InternalPath(p), nil
}

// NodeExists reports whether p exists on its storage.
func (r *Root) NodeExists(p string) bool {
	m, internal, err := r.resolve(p)
	if err != nil {
		return false
	}
	return m.Storage().Exists(internal)
}

// Get resolves p to a node, registering it in the cache when it exists on
// disk but was never scanned.
func (r *Root) Get(ctx context.Context, p string) (*Node, error) {
	m, internal, err := r.resolve(p)
	if err != nil {
		return nil, err
	}

	entry, err := m.Storage().Cache().Get(ctx, internal)
	if errors.Is(err, database.ErrNotFound) {
		if !m.Storage().Exists(internal) {
			return nil, ErrNotFound
		}
		entry, err = m.Storage().Scanner().ScanFile(ctx, internal, ReuseEtag)
		if err == nil && entry == nil {
			return nil, ErrNotFound
		}
	}
	if err != nil {
		return nil, err
	}
	return &Node{root: r, mount: m, path: NormalizePath(p), entry: entry}, nil
}

// Node is a file or folder of the virtual tree.
type Node struct {
	root  *Root
	mount *Mount
	path  string
	entry *database.CacheEntry
}

func (n *Node) ID() int64            { return n.entry.ID }
func (n *Node) Path() string         { return n.path }
func (n *Node) Name() string         { return path.Base(n.path) }
func (n *Node) MimeType() string     { return n.entry.MimeType }
func (n *Node) Size() int64          { return n.entry.Size }
func (n *Node) IsFolder() bool       { return n.entry.IsFolder() }
func (n *Node) IsFile() bool         { return !n.entry.IsFolder() }
func (n *Node) Mount() *Mount        { return n.mount }
func (n *Node) Storage() Storage     { return n.mount.Storage() }
func (n *Node) InternalPath() string { return n.entry.Path }

// DirectoryListing returns the children of a folder after reconciling
// them with the disk.
func (n *Node) DirectoryListing(ctx context.Context) ([]*Node, error) {
	if !n.IsFolder() {
		return nil, ErrNotFound
	}
	storage := n.Storage()
	if _, err := storage.Scanner().Scan(ctx, n.entry.Path, ScanShallow, ReuseEtag|ReuseSize); err != nil {
		return nil, err
	}

	children, err := storage.Cache().Children(ctx, n.entry.Path)
	if err != nil {
		return nil, err
	}

	nodes := make([]*Node, 0, len(children))
	for i := range children {
		nodes = append(nodes, n.child(n.mount, &children[i]))
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].path < nodes[j].path })
	return nodes, nil
}

// SearchByMime returns the cached files below the folder whose MIME type is
// mime, or starts with mime + "/" when mime has no subtype. Mounts nested
// in the folder are searched too.
func (n *Node) SearchByMime(ctx context.Context, mime string) ([]*Node, error) {
	if !n.IsFolder() {
		return nil, ErrNotFound
	}

	entries, err := n.Storage().Cache().SearchByMime(ctx, n.entry.Path, mime)
	if err != nil {
		return nil, err
	}
	var nodes []*Node
	for i := range entries {
		nodes = append(nodes, n.child(n.mount, &entries[i]))
	}

	for _, m := range n.root.mounts.FindIn(n.path) {
		if m.Storage() == nil {
			continue
		}
		entries, err := m.Storage().Cache().SearchByMime(ctx, "", mime)
		if err != nil {
			return nil, err
		}
		for i := range entries {
			nodes = append(nodes, n.child(m, &entries[i]))
		}
	}
	return nodes, nil
}

func (n *Node) child(m *Mount, entry *database.CacheEntry) *Node {
	return &Node{
		root:  n.root,
		mount: m,
		path:  NormalizePath(m.MountPoint() + entry.Path),
		entry: entry,
	}
}

// Delete removes the node and its cache entries under an exclusive lock.
func (n *Node) Delete(ctx context.Context) error {
	return locking.WithLock(ctx, n.root.locks, n.path, locking.LockExclusive, func() error {
		return n.Storage().Delete(ctx, n.entry.Path)
	})
}
