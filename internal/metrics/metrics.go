package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_db_transaction_duration_seconds",
			Help:    "Duration of batch transactions in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_operation_errors_total",
			Help: "Total number of failed filesystem operations",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_retry_attempts_total",
			Help: "Total number of filesystem retries after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_retry_success_total",
			Help: "Total number of filesystem operations that succeeded after a retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_retry_failures_total",
			Help: "Total number of filesystem operations that failed after all retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_filesystem_stale_errors_total",
			Help: "Total number of ESTALE errors seen",
		},
		[]string{"operation", "volume"},
	)
)

// Scanner metrics
var (
	ScannerEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_scanner_entries_total",
			Help: "Total number of file cache entries handled by the storage scanner",
		},
		[]string{"type", "event"}, // type: file/folder, event: scanned/added/removed
	)

	ScannerScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_scanner_scan_duration_seconds",
			Help:    "Duration of one recursive storage scan in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
	)
)

// Thumbnail metrics
var (
	ThumbnailGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_thumbnail_generations_total",
			Help: "Total number of thumbnail generations",
		},
		[]string{"type", "status"},
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gallery_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"type"},
	)

	ThumbnailDeletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_thumbnail_deletions_total",
			Help: "Total number of thumbnail folder deletions",
		},
		[]string{"mode", "status"}, // mode: file/user/cache
	)
)

// Locking metrics
var (
	LockAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_lock_acquisitions_total",
			Help: "Total number of lock acquisitions by provider, lock type and status",
		},
		[]string{"provider", "type", "status"},
	)
)

// Command run metrics
var (
	CommandRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_command_runs_total",
			Help: "Total number of command runs",
		},
		[]string{"command", "status"},
	)

	CommandLastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_command_last_run_timestamp",
			Help: "Unix timestamp of the last completed command run",
		},
		[]string{"command"},
	)

	CommandLastRunDuration = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_command_last_run_duration_seconds",
			Help: "Duration of the last command run in seconds",
		},
		[]string{"command"},
	)

	CommandLastRunItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_command_last_run_items",
			Help: "Counters of the last command run",
		},
		[]string{"command", "counter"}, // folders, files, images, operations, failed
	)

	CommandLastRunBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_command_last_run_bytes",
			Help: "Bytes accounted by the last command run (scanned size or space saved)",
		},
		[]string{"command"},
	)
)

// Memory metrics
var (
	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes (0 if not set)",
		},
	)

	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_memory_usage_ratio",
			Help: "Heap allocation as a ratio of the memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_memory_paused",
			Help: "Whether thumbnail generation is paused due to memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gallery_memory_gc_pauses_total",
			Help: "Total number of times generation was paused for memory pressure",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gallery_app_info",
			Help: "Application information",
		},
		[]string{"version", "go_version", "run_id"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, goVersion, runID string) {
	AppInfo.WithLabelValues(version, goVersion, runID).Set(1)
}
