package thumbnails

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/logging"
)

// Default rendition bounds of create-thumbnails.
const (
	DefaultThumbnailWidth  = 400
	DefaultThumbnailHeight = 200
)

// CreateOptions configure a create-thumbnails run.
type CreateOptions struct {
	Params
	Quiet bool
	// Regenerate replaces thumbnails that already exist.
	Regenerate bool
	Width      int
	Height     int
}

// Create scans the targeted users' files and generates the missing
// thumbnails of every supported media file. Per file failures are counted,
// not returned; the returned error is either a CommandError that stopped the
// run before anything was scanned or a failure of the metadata store.
func Create(ctx context.Context, env Env, opts CreateOptions) (*RunStatistics, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultThumbnailWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultThumbnailHeight
	}
	w := &createWorkflow{
		env:     env,
		opts:    opts,
		scanner: NewGalleryScanner(env.Tx, env.Changes, env.Locks, env.Cancel),
	}
	return execute(ctx, env, opts.Params, opts.Quiet, w)
}

type createWorkflow struct {
	env     Env
	opts    CreateOptions
	scanner *GalleryScanner
}

func (w *createWorkflow) name() string { return "create-thumbnails" }

func (w *createWorkflow) inputMessages() (string, string) {
	return `Please specify the user id to scan, "--all" to scan for all users or "--path=..."`,
		`The path given in "--path=..." does not start with "/user_id/files" eg. --path="/alice/files/Holidays"`
}

func (w *createWorkflow) guard() error {
	if w.env.Encryption != nil && w.env.Encryption.IsEnabled() {
		return forbiddenError("We cannot create thumbnails if server side encryption is enabled")
	}
	return nil
}

func (w *createWorkflow) prepare(*Runner, Targets) error { return nil }

func (w *createWorkflow) processUser(ctx context.Context, r *Runner, user string, t Targets) error {
	// Only the user's files folder gets thumbnails
	path := t.Path
	if path == "" {
		path = "/" + user + "/files"
	}

	v := &createVisitor{ctx: ctx, r: r, w: w}
	op := func(ctx context.Context, storage filesystem.Storage, mount *filesystem.Mount, path, user string) (int64, error) {
		return w.scanner.Scan(ctx, storage, mount, path, user, v)
	}

	size, err := r.PerformOperation(ctx, op, user, path)

	// Mounts scanned before a failure keep their changes, flush them now
	perr := w.env.Changes.PropagateChanges(ctx, time.Now())
	if err != nil {
		if perr != nil {
			logging.Error("Failed to propagate changes for %s: %v", user, perr)
		}
		return err
	}
	if perr != nil {
		return fmt.Errorf("failed to propagate changes for %s: %w", user, perr)
	}
	r.stats.Size += size
	return nil
}

func (w *createWorkflow) present(r *Runner) {
	if r.stats.Files > 0 {
		r.showSummary([]string{
			"Folders", "Files", "Supported images", "New previews", "Failed previews",
			"Elapsed time", "Total size",
		}, nil)
	}
	r.showFailed("List of failed previews")
}

// allowedSegments splits path and reports whether it lies in the files
// folder of user. The scanner also reports entries written while it runs,
// thumbnails included, so scope is checked for every event.
func allowedSegments(user, path string) ([]string, bool) {
	segments := strings.Split(path, "/")
	if len(segments) < 3 || segments[1] != user || segments[2] != "files" {
		return nil, false
	}
	return segments, true
}

// createVisitor is the NodeVisitor of one user's scan.
type createVisitor struct {
	ctx context.Context
	r   *Runner
	w   *createWorkflow
}

func (v *createVisitor) OnFolder(path string, mount *filesystem.Mount, user string) {
	if _, ok := allowedSegments(user, mount.MountPoint()+path); ok {
		v.r.stats.Folders++
	}
}

func (v *createVisitor) OnFile(path string, mount *filesystem.Mount, user string) {
	full := mount.MountPoint() + path
	if _, ok := allowedSegments(user, full); !ok || v.r.Interrupted() {
		return
	}

	node, err := v.r.env.FS.Get(v.ctx, full)
	if err != nil {
		logging.Debug("Cannot resolve %s: %v", full, err)
		v.r.Errorf("Problem accessing %s", full)
		return
	}
	if !node.IsFile() {
		return
	}

	v.r.stats.Files++
	v.r.stats.LastFile = node.Path()
	v.createForSupportedType(user, node, full)
}

func (v *createVisitor) createForSupportedType(user string, node *filesystem.Node, path string) {
	r := v.r
	r.Printf("Analysing [ID: %d] %s...", node.ID(), path)

	if !r.env.Previews.IsSupported(node.MimeType()) {
		r.Printf("There is no preview provider for that media type")
		return
	}
	r.stats.Images++

	preview, err := r.env.Previews.Preview(v.ctx, user, node)
	if err != nil {
		logging.Debug("Cannot open preview of %s: %v", path, err)
		r.Errorf("Problem accessing %s", path)
		return
	}
	v.checkCacheAndCreate(preview, path)
}

func (v *createVisitor) checkCacheAndCreate(preview Preview, path string) {
	r := v.r
	cached, err := preview.IsCached(v.ctx)
	if err != nil {
		r.TrackFailed(path, fmt.Sprintf("There was an unexpected error while trying to generate the preview. %v", err))
		return
	}

	switch {
	case cached && !v.w.opts.Regenerate:
		r.Printf("The system already has a preview for that file")
		return
	case v.w.opts.Regenerate:
		r.Printf("Forcing the regeneration of the preview...")
		if err := preview.DeleteAll(v.ctx); err != nil {
			r.TrackFailed(path, fmt.Sprintf("There was an unexpected error while trying to generate the preview. %v", err))
			return
		}
	default:
		r.Printf("The scanner has found a missing preview! Generating...")
	}
	v.generate(preview, path)
}

func (v *createVisitor) generate(preview Preview, path string) {
	r := v.r
	ok, err := preview.Generate(v.ctx, v.w.opts.Width, v.w.opts.Height, true)
	switch {
	case err != nil:
		r.TrackFailed(path, fmt.Sprintf("There was an unexpected error while trying to generate the preview. %v", err))
	case !ok:
		r.TrackFailed(path, "The system was unable to generate a preview")
	default:
		r.stats.Operations++
		r.Printf("Preview generated!")
	}
}
