// Package database provides the SQLite metadata store used by the gallery
// tools.
//
// It holds:
//   - The file cache: one row per file or folder of every storage, keyed by
//     storage id and storage-relative path
//   - The lock table backing the database locking provider
//   - A small key/value metadata table (last run timestamps)
//
// The database uses WAL mode so the web server can keep reading while a scan
// runs. A single batch transaction can be opened with BeginBatch; while it is
// open every query goes through it.
package database
