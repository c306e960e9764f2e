package database

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrLocked is returned when a lock is held by someone else.
var ErrLocked = errors.New("resource is locked")

// exclusiveLock marks a row held exclusively; positive values count shared holders.
const exclusiveLock = -1

// AcquireLock takes a shared or exclusive lock on key for at most ttl.
// Expired locks are treated as free.
func (d *Database) AcquireLock(ctx context.Context, key string, exclusive bool, ttl time.Duration) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("acquire_lock", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().Unix()
	expires := time.Now().Add(ttl).Unix()

	var query string
	var args []any
	if exclusive {
		query = `
			INSERT INTO file_locks (key, lock, ttl) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET lock = excluded.lock, ttl = excluded.ttl
			WHERE file_locks.lock = 0 OR file_locks.ttl < ?
		`
		args = []any{key, exclusiveLock, expires, now}
	} else {
		query = `
			INSERT INTO file_locks (key, lock, ttl) VALUES (?, 1, ?)
			ON CONFLICT(key) DO UPDATE SET
				lock = CASE WHEN file_locks.ttl < ? THEN 1 ELSE file_locks.lock + 1 END,
				ttl = excluded.ttl
			WHERE file_locks.lock >= 0 OR file_locks.ttl < ?
		`
		args = []any{key, expires, now, now}
	}

	res, err := d.conn().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		err = ErrLocked
		return fmt.Errorf("%w: %s", ErrLocked, key)
	}
	return nil
}

// ReleaseLock releases a lock taken with AcquireLock.
func (d *Database) ReleaseLock(ctx context.Context, key string, exclusive bool) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("release_lock", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if exclusive {
		_, err = d.conn().ExecContext(ctx,
			"UPDATE file_locks SET lock = 0 WHERE key = ? AND lock = ?", key, exclusiveLock)
	} else {
		_, err = d.conn().ExecContext(ctx,
			"UPDATE file_locks SET lock = lock - 1 WHERE key = ? AND lock > 0", key)
	}
	if err != nil {
		return fmt.Errorf("failed to release lock on %q: %w", key, err)
	}

	_, err = d.conn().ExecContext(ctx, "DELETE FROM file_locks WHERE key = ? AND lock = 0", key)
	return err
}
