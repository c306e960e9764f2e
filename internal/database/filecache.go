package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
)

const entryColumns = "id, storage, path, parent, name, type, mime_type, size, mtime, etag"

// FileCache is the view of the file cache for one storage.
type FileCache struct {
	db      *Database
	storage string
}

// Cache returns the file cache of the given storage.
func (d *Database) Cache(storage string) *FileCache {
	return &FileCache{db: d, storage: storage}
}

// StorageID returns the id of the storage this cache belongs to.
func (c *FileCache) StorageID() string {
	return c.storage
}

// ParentPath returns the cache path of the parent folder. The storage root
// ("") is its own parent.
func ParentPath(p string) string {
	dir := path.Dir(p)
	if dir == "." || dir == "/" {
		return ""
	}
	return dir
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*CacheEntry, error) {
	var (
		e     CacheEntry
		typ   string
		mtime int64
	)
	if err := row.Scan(&e.ID, &e.Storage, &e.Path, &e.Parent, &e.Name, &typ, &e.MimeType, &e.Size, &mtime, &e.ETag); err != nil {
		return nil, err
	}
	e.Type = EntryType(typ)
	e.ModTime = time.Unix(mtime, 0)
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]CacheEntry, error) {
	var entries []CacheEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// GetEntryByID returns the cache entry with the given id from any storage.
func (d *Database) GetEntryByID(ctx context.Context, id int64) (*CacheEntry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_entry_by_id", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	e, err := scanEntry(d.conn().QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM filecache WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Get returns the entry at p, or ErrNotFound.
func (c *FileCache) Get(ctx context.Context, p string) (*CacheEntry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_entry", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	e, err := scanEntry(c.db.conn().QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM filecache WHERE storage = ? AND path = ?", c.storage, p))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return e, err
}

// Put inserts or updates the entry at e.Path and returns its id. Parent and
// Name are derived from the path.
func (c *FileCache) Put(ctx context.Context, e *CacheEntry) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("put_entry", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	name := path.Base(e.Path)
	if e.Path == "" {
		name = ""
	}

	var id int64
	err = c.db.conn().QueryRowContext(ctx, `
		INSERT INTO filecache (storage, path, parent, name, type, mime_type, size, mtime, etag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(storage, path) DO UPDATE SET
			type = excluded.type,
			mime_type = excluded.mime_type,
			size = excluded.size,
			mtime = excluded.mtime,
			etag = excluded.etag
		RETURNING id
	`, c.storage, e.Path, ParentPath(e.Path), name, string(e.Type), e.MimeType, e.Size, e.ModTime.Unix(), e.ETag).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to store cache entry %q: %w", e.Path, err)
	}
	return id, nil
}

// Remove deletes the entry at p together with everything below it and
// returns the number of rows removed. Removing "" clears the whole storage.
func (c *FileCache) Remove(ctx context.Context, p string) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("remove_entry", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var res sql.Result
	if p == "" {
		res, err = c.db.conn().ExecContext(ctx, "DELETE FROM filecache WHERE storage = ?", c.storage)
	} else {
		prefix := p + "/"
		res, err = c.db.conn().ExecContext(ctx, `
			DELETE FROM filecache
			WHERE storage = ? AND (path = ? OR substr(path, 1, length(?)) = ?)
		`, c.storage, p, prefix, prefix)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to remove cache entry %q: %w", p, err)
	}
	return res.RowsAffected()
}

// Children returns the direct children of the folder at p, ordered by name.
func (c *FileCache) Children(ctx context.Context, p string) ([]CacheEntry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_children", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := c.db.conn().QueryContext(ctx,
		"SELECT "+entryColumns+" FROM filecache WHERE storage = ? AND parent = ? AND path != '' ORDER BY name",
		c.storage, p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries, err := collectEntries(rows)
	return entries, err
}

// SearchByMime returns the files below the folder at prefix whose MIME type
// is mime. A mime without a slash ("image") matches the whole top-level type.
func (c *FileCache) SearchByMime(ctx context.Context, prefix, mime string) ([]CacheEntry, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("search_by_mime", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	pathPrefix := ""
	if prefix != "" {
		pathPrefix = prefix + "/"
	}
	mimePrefix := mime + "/"

	rows, err := c.db.conn().QueryContext(ctx, `
		SELECT `+entryColumns+` FROM filecache
		WHERE storage = ?
		  AND type = ?
		  AND (mime_type = ? OR substr(mime_type, 1, length(?)) = ?)
		  AND (? = '' OR substr(path, 1, length(?)) = ?)
		ORDER BY path
	`, c.storage, string(EntryTypeFile), mime, mimePrefix, mimePrefix, pathPrefix, pathPrefix, pathPrefix)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries, err := collectEntries(rows)
	return entries, err
}

// UpdateFolder recomputes the size of the folder at p from its children,
// moves its mtime forward to at least mtime and gives it a fresh etag.
// Folders missing from the cache are ignored.
func (c *FileCache) UpdateFolder(ctx context.Context, p string, mtime time.Time) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("update_folder", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = c.db.conn().ExecContext(ctx, `
		UPDATE filecache SET
			size = (SELECT COALESCE(SUM(MAX(c.size, 0)), 0) FROM filecache c
			        WHERE c.storage = filecache.storage AND c.parent = filecache.path AND c.path != ''),
			mtime = MAX(mtime, ?),
			etag = ?
		WHERE storage = ? AND path = ? AND type = ?
	`, mtime.Unix(), newETag(), c.storage, p, string(EntryTypeFolder))
	if err != nil {
		return fmt.Errorf("failed to update folder %q: %w", p, err)
	}
	return nil
}

func newETag() string {
	return uuid.NewString()
}
