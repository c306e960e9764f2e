package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

var (
	// ErrNotFound is returned when a cache entry does not exist.
	ErrNotFound = errors.New("cache entry not found")
	// ErrTransactionActive is returned by BeginBatch when a batch is already open.
	ErrTransactionActive = errors.New("transaction already in progress")
	// ErrNoTransaction is returned by EndBatch when no batch is open.
	ErrNoTransaction = errors.New("no transaction in progress")
)

// querier is the subset of *sql.DB and *sql.Tx used by the queries.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Database is the metadata store backing the file cache and the lock table.
//
// At most one batch transaction is open at a time. While it is open every
// query issued through the Database runs inside it, so a long scan sees its
// own writes and other processes only see the committed result.
type Database struct {
	db      *sql.DB
	dbPath  string
	mu      sync.Mutex
	tx      *sql.Tx
	txStart time.Time
}

// New opens (and if needed creates) the SQLite database at dbPath.
// The parent directory must exist and be writable.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Debug("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors when the web
	// server writes to the same file while a scan runs
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Debug("Database initialized at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	-- Metadata cache of every storage known to the gallery
	CREATE TABLE IF NOT EXISTS filecache (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		storage TEXT NOT NULL,
		path TEXT NOT NULL,
		parent TEXT NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		mime_type TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		mtime INTEGER NOT NULL DEFAULT 0,
		etag TEXT NOT NULL DEFAULT '',
		UNIQUE(storage, path)
	);

	CREATE INDEX IF NOT EXISTS idx_filecache_parent ON filecache(storage, parent);
	CREATE INDEX IF NOT EXISTS idx_filecache_mime ON filecache(storage, mime_type);

	-- Document level locks used by the database locking provider
	CREATE TABLE IF NOT EXISTS file_locks (
		key TEXT PRIMARY KEY,
		lock INTEGER NOT NULL DEFAULT 0,
		ttl INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_file_locks_ttl ON file_locks(ttl);

	-- Metadata table
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err = d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection, rolling back an unfinished batch.
func (d *Database) Close() error {
	d.mu.Lock()
	tx := d.tx
	d.tx = nil
	d.mu.Unlock()

	if tx != nil {
		logging.Warn("Closing database with an open transaction, rolling back")
		if err := tx.Rollback(); err != nil {
			logging.Error("rollback on close failed: %v", err)
		}
	}
	return d.db.Close()
}

// Path returns the database file path.
func (d *Database) Path() string {
	return d.dbPath
}

// conn returns the open batch transaction if there is one, the pool otherwise.
func (d *Database) conn() querier {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.tx != nil {
		return d.tx
	}
	return d.db
}

// BeginBatch opens the batch transaction.
// The caller is responsible for calling EndBatch when done.
func (d *Database) BeginBatch(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("begin_transaction", start, err) }()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.tx != nil {
		err = ErrTransactionActive
		return err
	}

	// The transaction lifetime is managed by EndBatch, so no timeout here.
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	d.tx = tx
	d.txStart = time.Now()
	return nil
}

// EndBatch commits the batch transaction, or rolls it back when err is non-nil.
// The original error is returned on rollback.
func (d *Database) EndBatch(err error) error {
	d.mu.Lock()
	tx := d.tx
	txStart := d.txStart
	d.tx = nil
	d.mu.Unlock()

	if tx == nil {
		return ErrNoTransaction
	}

	duration := time.Since(txStart).Seconds()

	if err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(duration)
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(duration)
	if cErr := tx.Commit(); cErr != nil {
		return fmt.Errorf("failed to commit transaction: %w", cErr)
	}
	return nil
}

// InBatch reports whether a batch transaction is open.
func (d *Database) InBatch() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tx != nil
}

// Vacuum optimizes the database.
func (d *Database) Vacuum(ctx context.Context) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("vacuum", start, err) }()

	if d.InBatch() {
		err = ErrTransactionActive
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	_, err = d.db.ExecContext(ctx, "VACUUM")
	return err
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, suffix := range []string{"", "-wal", "-shm"} {
		info, err := os.Stat(dbPath + suffix)
		if err != nil {
			continue
		}
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file %s is read-only! Mode: %v - this will cause write failures", dbPath+suffix, info.Mode())
		}
	}

	return nil
}
