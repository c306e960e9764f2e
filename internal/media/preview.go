package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/locking"
	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/mediatypes"
	"gallery-thumbs/internal/memory"
	"gallery-thumbs/internal/metrics"
)

// ThumbnailsFolder is the folder of a user's home storage holding previews.
const ThumbnailsFolder = "thumbnails"

// ErrUnsupported is returned when no renderer handles a file's type.
var ErrUnsupported = errors.New("no preview provider for this media type")

// Options configure a Generator.
type Options struct {
	// Quality of the JPEG renditions (1-100)
	Quality int
	// VideoPreviews enables frame extraction with ffmpeg
	VideoPreviews bool
	// Monitor, when set, delays decoding while memory is short
	Monitor *memory.Monitor
}

// Generator renders and stores previews of the files of the virtual tree.
// Renditions of file <id> live in /<user>/thumbnails/<id>/<maxX>-<maxY>.jpg.
type Generator struct {
	root      *filesystem.Root
	quality   int
	video     bool
	monitor   *memory.Monitor
	supported []string
}

// NewGenerator returns a generator writing into the home storages of root.
func NewGenerator(root *filesystem.Root, opts Options) *Generator {
	g := &Generator{
		root:    root,
		quality: opts.Quality,
		monitor: opts.Monitor,
	}
	if g.quality <= 0 || g.quality > 100 {
		g.quality = 80
	}

	g.supported = slices.Clone(mediatypes.ImagePreviewTypes)
	if IsVipsAvailable() {
		g.supported = append(g.supported, mediatypes.VipsPreviewTypes...)
	}
	if opts.VideoPreviews {
		if ffmpegAvailable() {
			g.video = true
			g.supported = append(g.supported, mediatypes.VideoPreviewTypes...)
		} else {
			logging.Warn("Video previews enabled but ffmpeg was not found in PATH")
		}
	}

	logging.Debug("Preview generator supports %d media types", len(g.supported))
	return g
}

// SupportedMimeTypes returns the MIME types previews can be generated for.
func (g *Generator) SupportedMimeTypes() []string {
	return slices.Clone(g.supported)
}

// IsSupported reports whether previews can be generated for mime.
func (g *Generator) IsSupported(mime string) bool {
	return slices.Contains(g.supported, mime)
}

// Preview returns the preview handle of the file at relPath inside the
// namespace folder ("files") of user.
func (g *Generator) Preview(ctx context.Context, user, namespace, relPath string) (*Preview, error) {
	full := "/" + user + "/" + namespace + "/" + strings.TrimPrefix(relPath, "/")
	node, err := g.root.Get(ctx, full)
	if err != nil {
		return nil, err
	}
	return g.PreviewForNode(user, node)
}

// PreviewForNode returns the preview handle of an already resolved file.
// The renditions live in the home storage of user.
func (g *Generator) PreviewForNode(user string, node *filesystem.Node) (*Preview, error) {
	if node.IsFolder() {
		return nil, fmt.Errorf("%s is a folder", node.Path())
	}
	if err := g.root.Mounts().Setup(user); err != nil {
		return nil, err
	}
	home, ok := g.root.Mounts().Home(user)
	if !ok {
		return nil, fmt.Errorf("no home storage for %s", user)
	}

	return &Preview{
		g:      g,
		user:   user,
		node:   node,
		home:   home,
		folder: path.Join(ThumbnailsFolder, strconv.FormatInt(node.ID(), 10)),
	}, nil
}

// Preview is the preview cache of one file.
type Preview struct {
	g      *Generator
	user   string
	node   *filesystem.Node
	home   *filesystem.LocalStorage
	folder string
}

// FileID returns the id of the previewed file.
func (p *Preview) FileID() int64 { return p.node.ID() }

// Folder returns the preview folder relative to the home storage.
func (p *Preview) Folder() string { return p.folder }

func (p *Preview) lockPath() string {
	return "/" + p.user + "/" + p.folder
}

func renditionName(maxX, maxY int) string {
	return fmt.Sprintf("%d-%d.jpg", maxX, maxY)
}

// IsCached reports whether at least one rendition of the file exists.
func (p *Preview) IsCached(_ context.Context) (bool, error) {
	entries, err := filesystem.ReadDirWithRetry(p.home.LocalFile(p.folder), filesystem.DefaultRetryConfig())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") && path.Ext(e.Name()) == ".jpg" {
			return true, nil
		}
	}
	return false, nil
}

// DeleteAll removes every rendition of the file.
func (p *Preview) DeleteAll(ctx context.Context) error {
	if !p.home.Exists(p.folder) {
		return nil
	}
	return locking.WithLock(ctx, p.g.root.Locks(), p.lockPath(), locking.LockExclusive, func() error {
		return p.home.Delete(ctx, p.folder)
	})
}

// Generate renders a rendition bounded by maxX x maxY and stores it. It
// returns false when the file decoded to an empty image.
func (p *Preview) Generate(ctx context.Context, maxX, maxY int, keepAspect bool) (bool, error) {
	start := time.Now()
	kind := string(mediatypes.TypeOf(p.node.MimeType()))

	data, err := p.g.render(ctx, p.node, maxX, maxY, keepAspect)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case len(data) == 0:
		status = "empty"
	}
	metrics.ThumbnailGenerationsTotal.WithLabelValues(kind, status).Inc()
	metrics.ThumbnailGenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil || len(data) == 0 {
		return false, err
	}

	target := path.Join(p.folder, renditionName(maxX, maxY))
	err = locking.WithLock(ctx, p.g.root.Locks(), p.lockPath(), locking.LockExclusive, func() error {
		_, err := p.home.WriteFile(ctx, target, data)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to store preview: %w", err)
	}

	logging.Debug("Stored %s preview of %s (%d bytes)", renditionName(maxX, maxY), p.node.Path(), len(data))
	return true, nil
}

func (g *Generator) render(ctx context.Context, node *filesystem.Node, maxX, maxY int, keepAspect bool) ([]byte, error) {
	mime := node.MimeType()
	if !g.IsSupported(mime) {
		return nil, ErrUnsupported
	}

	if g.monitor != nil {
		if err := g.monitor.WaitForHeadroom(ctx); err != nil {
			return nil, err
		}
	}

	local := node.Storage().LocalFile(node.InternalPath())

	var (
		img image.Image
		err error
	)
	switch {
	case slices.Contains(mediatypes.VideoPreviewTypes, mime):
		img, err = videoFrame(ctx, local)
	case IsVipsAvailable():
		return vipsPreview(local, maxX, maxY, keepAspect, g.quality)
	default:
		img, err = LoadImageConstrained(local, MaxImageDimension, MaxImagePixels)
	}
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, nil
	}
	return encodeJPEG(resize(img, maxX, maxY, keepAspect), g.quality)
}
