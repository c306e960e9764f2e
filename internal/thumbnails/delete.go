package thumbnails

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/metrics"
)

// ThumbnailsFolder is the folder of the home storage holding thumbnails,
// one subfolder per file id.
const ThumbnailsFolder = "thumbnails"

// DeleteOptions configure a delete-thumbnails run.
type DeleteOptions struct {
	Params
	Quiet bool
	// CacheOnly drops the thumbnails from the file cache and leaves the
	// files on disk. Ignored in path mode.
	CacheOnly bool
	// Yes skips the confirmation question.
	Yes bool
}

// Delete removes thumbnails, either those of the supported files below
// Path or every thumbnail of the targeted users.
func Delete(ctx context.Context, env Env, opts DeleteOptions) (*RunStatistics, error) {
	return execute(ctx, env, opts.Params, opts.Quiet, &deleteWorkflow{env: env, opts: opts})
}

type deleteWorkflow struct {
	env  Env
	opts DeleteOptions
}

func (w *deleteWorkflow) name() string { return "delete-thumbnails" }

func (w *deleteWorkflow) inputMessages() (string, string) {
	return `Please specify a user id, "--all" to delete all thumbnails or "--path=..."`,
		`The path given in "--path=..." does not start with "/user_id/files" or does not exist`
}

func (w *deleteWorkflow) guard() error { return nil }

func (w *deleteWorkflow) prepare(r *Runner, t Targets) error {
	if w.opts.Yes {
		return nil
	}
	switch {
	case t.Path != "":
		return r.Confirm(fmt.Sprintf("Are you sure you want to delete the thumbnails for files in this path: %s?", t.Path))
	case t.AllUsers:
		return r.Confirm("Are you sure you want to delete the thumbnails for all users?")
	default:
		return r.Confirm(fmt.Sprintf("Are you sure you want to delete the thumbnails for %s?", strings.Join(t.Users, ",")))
	}
}

func (w *deleteWorkflow) processUser(ctx context.Context, r *Runner, user string, t Targets) error {
	if t.Path != "" {
		op := func(ctx context.Context, _ filesystem.Storage, mount *filesystem.Mount, path, user string) (int64, error) {
			return w.deleteForMount(ctx, r, mount, path, user)
		}
		size, err := r.PerformOperation(ctx, op, user, t.Path)
		r.stats.Size += size
		return err
	}
	return w.deleteForUser(ctx, r, user)
}

func (w *deleteWorkflow) present(r *Runner) {
	if r.stats.Images == 0 {
		return
	}
	s := r.stats
	r.showSummary([]string{
		"Images found", "Deleted thumbnails", "Failed deletion", "Elapsed time", "Space saved",
	}, []string{
		strconv.Itoa(s.Images),
		strconv.Itoa(s.Operations),
		strconv.Itoa(s.Failed),
		FormatExecTime(s.Elapsed),
		FormatSize(s.Size),
	})
	r.showFailed("List of failed deletions")
}

// deleteForMount deletes the thumbnails of the supported files of mount
// found below path and returns the space saved.
func (w *deleteWorkflow) deleteForMount(ctx context.Context, r *Runner, mount *filesystem.Mount, path, user string) (int64, error) {
	folder, err := r.env.FS.Get(ctx, path)
	if err != nil || !folder.IsFolder() {
		return 0, notFoundError("The path provided is invalid")
	}

	var saved int64
	for _, mime := range r.env.Previews.SupportedMimeTypes() {
		images, err := folder.SearchByMime(ctx, mime)
		if err != nil {
			return saved, fmt.Errorf("failed to search %s for %s: %w", path, mime, err)
		}

		var matched []*filesystem.Node
		for _, img := range images {
			if img.Mount() == mount {
				matched = append(matched, img)
			}
		}
		if len(matched) == 0 {
			continue
		}

		r.Printf("Found images of media type %s", mime)
		for _, img := range matched {
			if r.Interrupted() {
				return saved, nil
			}
			r.stats.Images++
			r.stats.LastFile = img.Path()
			size, err := w.deleteForFile(ctx, r, user, img)
			if err != nil {
				logging.Warn("Failed to delete thumbnails of %s: %v", img.Path(), err)
				metrics.ThumbnailDeletionsTotal.WithLabelValues("file", "error").Inc()
				r.TrackFailed(img.Path(), "There was an unexpected error while trying to delete the thumbnails")
				continue
			}
			saved += size
		}
	}
	return saved, nil
}

func (w *deleteWorkflow) deleteForFile(ctx context.Context, r *Runner, user string, img *filesystem.Node) (int64, error) {
	folder := ThumbnailsFolder + "/" + strconv.FormatInt(img.ID(), 10)
	deleted, size, _, err := w.deleteThumbnails(ctx, r, user, folder)
	if err != nil {
		return 0, err
	}
	if !deleted {
		r.Printf("No thumbnails found for [ID: %d] %s", img.ID(), img.Path())
		return 0, nil
	}
	r.stats.Operations++
	metrics.ThumbnailDeletionsTotal.WithLabelValues("file", "success").Inc()
	r.Printf("Thumbnails for [ID: %d] %s deleted!", img.ID(), img.Path())
	return size, nil
}

func (w *deleteWorkflow) deleteForUser(ctx context.Context, r *Runner, user string) error {
	if err := r.env.FS.Setup(user); err != nil {
		w.cannotDelete(r, user, err)
		return nil
	}
	if w.opts.CacheOnly {
		return w.clearCache(ctx, r, user)
	}

	deleted, size, count, err := w.deleteThumbnails(ctx, r, user, ThumbnailsFolder)
	if errors.Is(err, filesystem.ErrNotFound) {
		w.cannotDelete(r, user, err)
		return nil
	}
	if err != nil {
		metrics.ThumbnailDeletionsTotal.WithLabelValues("user", "error").Inc()
		return fmt.Errorf("failed to delete thumbnails of %s: %w", user, err)
	}
	if !deleted {
		r.Printf("No thumbnails found for %s", user)
		return nil
	}

	metrics.ThumbnailDeletionsTotal.WithLabelValues("user", "success").Inc()
	r.stats.Images += count
	r.stats.Operations += count
	r.stats.Size += size
	r.Printf("Deleted all thumbnails for %s", user)
	return nil
}

func (w *deleteWorkflow) cannotDelete(r *Runner, user string, err error) {
	r.Errorf("Cannot delete the thumbnails folder for %s. %v", user, err)
	r.Errorf("%s", processOwnerHint)
}

// clearCache forgets the thumbnails of user in the file cache. The files
// stay on disk.
func (w *deleteWorkflow) clearCache(ctx context.Context, r *Runner, user string) error {
	r.Printf("Removing all thumbnails for %s, from the cache", user)

	home, err := r.env.FS.Get(ctx, "/"+user)
	if err != nil {
		w.cannotDelete(r, user, err)
		return nil
	}
	removed, err := home.Storage().Cache().Remove(ctx, ThumbnailsFolder)
	if err != nil {
		metrics.ThumbnailDeletionsTotal.WithLabelValues("cache", "error").Inc()
		return fmt.Errorf("failed to clear the thumbnail cache of %s: %w", user, err)
	}
	metrics.ThumbnailDeletionsTotal.WithLabelValues("cache", "success").Inc()
	logging.Info("Removed %d thumbnail cache entries of %s", removed, user)
	return nil
}

// deleteThumbnails deletes the folder at rel in the home of user. It reports
// whether the folder existed, its size and how many entries it held.
func (w *deleteWorkflow) deleteThumbnails(ctx context.Context, r *Runner, user, rel string) (bool, int64, int, error) {
	p := "/" + user + "/" + rel
	if !r.env.FS.NodeExists(p) {
		return false, 0, 0, nil
	}
	folder, err := r.env.FS.Get(ctx, p)
	if err != nil {
		return false, 0, 0, err
	}

	children, err := folder.DirectoryListing(ctx)
	if err != nil {
		return false, 0, 0, err
	}
	// The listing rescanned the folder, its size may have changed
	if refreshed, err := r.env.FS.Get(ctx, p); err == nil {
		folder = refreshed
	}
	size := max(folder.Size(), 0)

	if err := folder.Delete(ctx); err != nil {
		return false, 0, 0, err
	}
	return true, size, len(children), nil
}
