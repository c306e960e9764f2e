package filesystem

import (
	"context"
	"sort"
	"strings"
	"time"

	"gallery-thumbs/internal/logging"
)

// ChangePropagator collects the paths whose cache entries changed during a
// run and, on PropagateChanges, refreshes the aggregates of their folders
// and every ancestor.
type ChangePropagator struct {
	mounts  *MountManager
	changes map[string]struct{}
}

// NewChangePropagator returns an empty propagator.
func NewChangePropagator(mounts *MountManager) *ChangePropagator {
	return &ChangePropagator{mounts: mounts, changes: make(map[string]struct{})}
}

// AddChange records an absolute virtual path.
func (p *ChangePropagator) AddChange(path string) {
	p.changes[NormalizePath(path)] = struct{}{}
}

// Changes returns the recorded paths, sorted.
func (p *ChangePropagator) Changes() []string {
	out := make([]string, 0, len(p.changes))
	for c := range p.changes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// PropagateChanges updates size, mtime and etag of every recorded folder
// and of the ancestors of every recorded path, deepest first. The change set
// is cleared even when an update fails.
func (p *ChangePropagator) PropagateChanges(ctx context.Context, t time.Time) error {
	if len(p.changes) == 0 {
		return nil
	}
	defer func() { p.changes = make(map[string]struct{}) }()

	folders := make(map[string]struct{})
	for c := range p.changes {
		for dir := c; dir != "/"; {
			folders[dir] = struct{}{}
			dir = NormalizePath(dir[:strings.LastIndex(dir, "/")])
		}
	}

	ordered := make([]string, 0, len(folders))
	for f := range folders {
		ordered = append(ordered, f)
	}
	sort.Slice(ordered, func(i, j int) bool {
		di, dj := strings.Count(ordered[i], "/"), strings.Count(ordered[j], "/")
		if di != dj {
			return di > dj
		}
		return ordered[i] < ordered[j]
	})

	for _, f := range ordered {
		m := p.mounts.Find(f)
		if m == nil || m.Storage() == nil {
			continue
		}
		if err := m.Storage().Cache().UpdateFolder(ctx, m.InternalPath(f), t); err != nil {
			return err
		}
	}

	logging.Debug("Propagated %d changes to %d folders", len(p.changes), len(ordered))
	return nil
}
