package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the broad category of a file.
type FileType string

const (
	// FileTypeFolder represents a directory.
	FileTypeFolder FileType = "folder"
	// FileTypeImage represents an image file.
	FileTypeImage FileType = "image"
	// FileTypeVideo represents a video file.
	FileTypeVideo FileType = "video"
	// FileTypeOther represents any other file.
	FileTypeOther FileType = "other"
)

// FolderMimeType is the MIME type recorded for directories in the file cache.
const FolderMimeType = "httpd/unix-directory"

// OctetStream is the MIME type of files nothing more specific is known about.
const OctetStream = "application/octet-stream"

// MimeTypes maps lowercase file extensions to their MIME types.
var MimeTypes = map[string]string{
	// Images
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",

	// Videos
	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",

	// Documents
	".txt":  "text/plain",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".json": "application/json",
	".zip":  "application/zip",
}

// Preview capable MIME types, grouped by what is needed to render them.
var (
	// ImagePreviewTypes decode with the pure Go decoders.
	ImagePreviewTypes = []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/bmp",
		"image/tiff",
		"image/webp",
	}

	// VipsPreviewTypes additionally need libvips.
	VipsPreviewTypes = []string{
		"image/heic",
		"image/heif",
	}

	// VideoPreviewTypes need ffmpeg to extract a frame.
	VideoPreviewTypes = []string{
		"video/mp4",
		"video/x-matroska",
		"video/quicktime",
		"video/webm",
		"video/x-m4v",
		"video/x-msvideo",
		"video/mpeg",
	}
)

// FromFilename returns the MIME type implied by the file name's extension,
// and whether the extension was known.
func FromFilename(name string) (string, bool) {
	mime, ok := MimeTypes[strings.ToLower(filepath.Ext(name))]
	return mime, ok
}

// TypeOf returns the broad category of a MIME type.
func TypeOf(mime string) FileType {
	switch {
	case mime == FolderMimeType:
		return FileTypeFolder
	case strings.HasPrefix(mime, "image/"):
		return FileTypeImage
	case strings.HasPrefix(mime, "video/"):
		return FileTypeVideo
	default:
		return FileTypeOther
	}
}
