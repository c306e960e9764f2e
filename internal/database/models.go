package database

import "time"

// EntryType distinguishes files from folders in the file cache.
type EntryType string

const (
	// EntryTypeFile is a regular file.
	EntryTypeFile EntryType = "file"
	// EntryTypeFolder is a directory.
	EntryTypeFolder EntryType = "folder"
)

// CacheEntry is one row of the file cache. Path is relative to the root of
// the storage identified by Storage; the storage root itself has Path "".
type CacheEntry struct {
	ID       int64
	Storage  string
	Path     string
	Parent   string
	Name     string
	Type     EntryType
	MimeType string
	Size     int64
	ModTime  time.Time
	ETag     string
}

// IsFolder reports whether the entry is a folder.
func (e *CacheEntry) IsFolder() bool {
	return e.Type == EntryTypeFolder
}
