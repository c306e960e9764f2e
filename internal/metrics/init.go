package metrics

// InitializeMetrics pre-populates the expected label combinations so every
// metric shows up in the textfile output even when a run never touched it.
func InitializeMetrics() {
	volumes := []string{"data", "external", "database", "unknown"}

	for _, vol := range volumes {
		for _, op := range []string{"stat", "readdir", "write", "remove"} {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
		}
		for _, op := range []string{"stat", "open"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, typ := range []string{"file", "folder"} {
		for _, event := range []string{"scanned", "added", "removed"} {
			ScannerEntriesTotal.WithLabelValues(typ, event)
		}
	}

	for _, typ := range []string{"image", "video"} {
		for _, status := range []string{"success", "error", "error_decode", "error_encode"} {
			ThumbnailGenerationsTotal.WithLabelValues(typ, status)
		}
		ThumbnailGenerationDuration.WithLabelValues(typ)
	}

	for _, mode := range []string{"file", "user", "cache"} {
		ThumbnailDeletionsTotal.WithLabelValues(mode, "success")
		ThumbnailDeletionsTotal.WithLabelValues(mode, "error")
	}

	for _, op := range []string{"initialize_schema", "get_entry", "get_entry_by_id", "put_entry",
		"remove_entry", "list_children", "search_by_mime", "update_folder",
		"acquire_lock", "release_lock", "begin_transaction"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, command := range []string{"create-thumbnails", "delete-thumbnails"} {
		for _, status := range []string{"success", "aborted", "error"} {
			CommandRunsTotal.WithLabelValues(command, status)
		}
	}
}
