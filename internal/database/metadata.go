package database

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// GetMetadata retrieves a metadata value by key.
// Returns sql.ErrNoRows if the key doesn't exist.
func (d *Database) GetMetadata(ctx context.Context, key string) (string, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("get_metadata", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value sql.NullString
	err = d.conn().QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value.String, nil
}

// SetMetadata sets a metadata key-value pair.
func (d *Database) SetMetadata(ctx context.Context, key, value string) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("set_metadata", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err = d.conn().ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func lastRunKey(command string) string {
	return "last_run:" + command
}

// GetLastRun returns when the named command last completed.
// Returns zero time if it never ran.
func (d *Database) GetLastRun(ctx context.Context, command string) (time.Time, error) {
	value, err := d.GetMetadata(ctx, lastRunKey(command))
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}

	return time.Parse(time.RFC3339, value)
}

// SetLastRun stores when the named command last completed.
func (d *Database) SetLastRun(ctx context.Context, command string, t time.Time) error {
	if t.IsZero() {
		return d.SetMetadata(ctx, lastRunKey(command), "")
	}
	return d.SetMetadata(ctx, lastRunKey(command), t.UTC().Format(time.RFC3339))
}
