// Package locking provides the document level locks taken around every
// mutating file operation.
//
// Three providers exist:
//   - file: flock(2) on per-path lock files (github.com/gofrs/flock)
//   - db: rows in the metadata database lock table
//   - none: grants everything, for single-user setups and tests
//
// Only the db provider is transactional. Callers that need metadata writes
// to appear atomically open their own transaction when the active provider
// is not.
package locking
