package thumbnails

import (
	"context"
	"time"

	"gallery-thumbs/internal/filesystem"
)

// UserDirectory knows which users exist.
type UserDirectory interface {
	UserExists(user string) bool
	List() ([]string, error)
}

// Filesystem is the virtual tree the commands work on.
type Filesystem interface {
	// Setup registers the mounts of user. It must be called before any
	// path of that user is resolved.
	Setup(user string) error
	Find(path string) *filesystem.Mount
	FindIn(path string) []*filesystem.Mount
	NodeExists(path string) bool
	Get(ctx context.Context, path string) (*filesystem.Node, error)
}

// PreviewProvider generates the thumbnails.
type PreviewProvider interface {
	SupportedMimeTypes() []string
	IsSupported(mime string) bool
	// Preview returns the preview handle of a scanned file of user. Its
	// renditions are stored in the user's home.
	Preview(ctx context.Context, user string, node *filesystem.Node) (Preview, error)
}

// Preview is the thumbnail cache entry of one file.
type Preview interface {
	FileID() int64
	IsCached(ctx context.Context) (bool, error)
	// DeleteAll removes every rendition of the file.
	DeleteAll(ctx context.Context) error
	// Generate renders a rendition bounded by maxX x maxY. It returns false
	// when the file produced no image.
	Generate(ctx context.Context, maxX, maxY int, keepAspect bool) (bool, error)
}

// EncryptionStatus reports whether server side encryption is on.
type EncryptionStatus interface {
	IsEnabled() bool
}

// Transactor opens and closes the metadata store transaction wrapping a
// scan. EndBatch commits, or rolls back when err is non-nil.
type Transactor interface {
	BeginBatch(ctx context.Context) error
	EndBatch(err error) error
}

// ChangeSet collects the paths changed by a scan and refreshes their
// ancestors' aggregates in one go.
type ChangeSet interface {
	AddChange(path string)
	PropagateChanges(ctx context.Context, t time.Time) error
}

// Confirmer asks a yes/no question. The question is always shown, even to a
// quiet run.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(question string) (bool, error)

func (f ConfirmFunc) Confirm(question string) (bool, error) { return f(question) }
