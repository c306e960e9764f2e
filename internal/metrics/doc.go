// Package metrics provides Prometheus instrumentation for the gallery tools.
//
// All metrics are prefixed with "gallery_" and registered with the default
// registry through promauto. The commands are short lived, so instead of an
// HTTP endpoint the metrics are written once at the end of a run to a file
// picked up by node-exporter's textfile collector (see [WriteTextfile]).
//
// # Metric Categories
//
// ## Database Metrics
//
//   - DBQueryTotal: Counter of queries by operation and status
//   - DBQueryDuration: Histogram of query duration by operation
//   - DBTransactionDuration: Histogram of batch transaction duration by outcome
//
// ## Filesystem Metrics
//
// Operation timings plus the ESTALE retry counters used on NFS mounts.
// [FilesystemObserver] connects them to the filesystem package.
//
// ## Scanner Metrics
//
//   - ScannerEntriesTotal: Counter of cache entries scanned, added and removed
//   - ScannerScanDuration: Histogram of recursive scan duration
//
// ## Thumbnail Metrics
//
//   - ThumbnailGenerationsTotal: Counter by type (image/video) and status
//   - ThumbnailGenerationDuration: Histogram of generation time by type
//   - ThumbnailDeletionsTotal: Counter by mode (file/user/cache) and status
//
// ## Command Metrics
//
// One set per command, updated by [RecordRun]: run count by status, last run
// timestamp and duration, last run counters and bytes.
//
// # Example PromQL
//
// Failed previews in the last run:
//
//	gallery_command_last_run_items{command="create-thumbnails",counter="failed"}
//
// Hours since the last successful create run:
//
//	(time() - gallery_command_last_run_timestamp{command="create-thumbnails"}) / 3600
package metrics
