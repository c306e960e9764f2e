package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gallery-thumbs/internal/logging"
)

// Mount attaches a storage to the virtual tree at a mount point.
type Mount struct {
	mountPoint string
	storage    Storage
	options    map[string]bool
}

// NewMount creates a mount. mountPoint is an absolute virtual path; a
// trailing slash is added if missing. storage may be nil when the backend
// is unavailable.
func NewMount(mountPoint string, storage Storage, options map[string]bool) *Mount {
	mp := NormalizePath(mountPoint)
	if mp != "/" {
		mp += "/"
	}
	if options == nil {
		options = map[string]bool{}
	}
	return &Mount{mountPoint: mp, storage: storage, options: options}
}

// MountPoint returns the mount point with its trailing slash.
func (m *Mount) MountPoint() string { return m.mountPoint }

// Storage returns the attached storage, nil when unavailable.
func (m *Mount) Storage() Storage { return m.storage }

// Option returns a boolean mount option, def when unset.
func (m *Mount) Option(key string, def bool) bool {
	if v, ok := m.options[key]; ok {
		return v
	}
	return def
}

// InternalPath maps an absolute virtual path to a path relative to the
// storage root. The mount point itself, and any of its ancestors, map to "".
func (m *Mount) InternalPath(p string) string {
	p = NormalizePath(p)
	if !strings.HasPrefix(p+"/", m.mountPoint) {
		return ""
	}
	rel := strings.TrimPrefix(p, strings.TrimSuffix(m.mountPoint, "/"))
	return strings.TrimPrefix(rel, "/")
}

// ExternalMount describes a storage mounted inside users' files folders.
type ExternalMount struct {
	// User owning the mount; "" or "*" mounts it for every user.
	User string `toml:"user"`
	// MountPoint relative to the user's files folder, e.g. "NAS".
	MountPoint string `toml:"mount_point"`
	Root       string `toml:"root"`
	Previews   *bool  `toml:"previews"`
	ReadOnly   bool   `toml:"read_only"`
}

func (e ExternalMount) appliesTo(user string) bool {
	return e.User == "" || e.User == "*" || e.User == user
}

func (e ExternalMount) previews() bool {
	return e.Previews == nil || *e.Previews
}

// MountManager resolves the mounts of a user's virtual tree.
type MountManager struct {
	dataDir  string
	store    MetadataStore
	external []ExternalMount
	mounts   map[string]*Mount
	homes    map[string]*LocalStorage
}

// NewMountManager returns a manager for the users stored in dataDir.
func NewMountManager(dataDir string, store MetadataStore, external []ExternalMount) *MountManager {
	return &MountManager{
		dataDir:  dataDir,
		store:    store,
		external: external,
		mounts:   make(map[string]*Mount),
		homes:    make(map[string]*LocalStorage),
	}
}

// Setup registers the home mount of user and the external mounts that
// apply to it. Calling it again for the same user is a no-op.
func (mm *MountManager) Setup(user string) error {
	if _, ok := mm.homes[user]; ok {
		return nil
	}

	home := NewHomeStorage(mm.dataDir, user, mm.store)
	info, err := StatWithRetry(home.Root(), home.retry)
	if err != nil {
		return fmt.Errorf("home folder of %s: %w", user, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("home folder of %s is not a directory", user)
	}

	mm.homes[user] = home
	mm.add(NewMount("/"+user, home, nil))

	for _, ext := range mm.external {
		if !ext.appliesTo(user) {
			continue
		}
		mp := "/" + user + "/files/" + strings.Trim(ext.MountPoint, "/")
		opts := map[string]bool{"previews": ext.previews()}

		var storage Storage
		if _, err := os.Stat(ext.Root); err == nil {
			storage = NewLocalStorage(filepath.Clean(ext.Root), user, ext.ReadOnly, mm.store)
		} else {
			logging.Warn("External storage %s for %s is unavailable: %v", ext.Root, user, err)
		}
		mm.add(NewMount(mp, storage, opts))
	}
	return nil
}

func (mm *MountManager) add(m *Mount) {
	mm.mounts[m.MountPoint()] = m
}

// Home returns the home storage of a user set up with Setup.
func (mm *MountManager) Home(user string) (*LocalStorage, bool) {
	h, ok := mm.homes[user]
	return h, ok
}

// Find returns the mount containing p, i.e. the one with the longest
// matching mount point.
func (mm *MountManager) Find(p string) *Mount {
	p = NormalizePath(p) + "/"
	var best *Mount
	for mp, m := range mm.mounts {
		if strings.HasPrefix(p, mp) && (best == nil || len(mp) > len(best.mountPoint)) {
			best = m
		}
	}
	return best
}

// FindIn returns the mounts strictly below p, sorted by mount point.
func (mm *MountManager) FindIn(p string) []*Mount {
	prefix := NormalizePath(p) + "/"
	if prefix == "//" {
		prefix = "/"
	}
	var found []*Mount
	for mp, m := range mm.mounts {
		if mp != prefix && strings.HasPrefix(mp, prefix) {
			found = append(found, m)
		}
	}
	sort.Slice(found, func(i, j int) bool {
		return found[i].mountPoint < found[j].mountPoint
	})
	return found
}
