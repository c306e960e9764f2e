package metrics

// FilesystemObserver records filesystem operations into the Prometheus
// metrics declared in this package. It satisfies filesystem.Observer.
type FilesystemObserver struct{}

// NewFilesystemObserver creates an observer backed by the filesystem metrics.
func NewFilesystemObserver() *FilesystemObserver {
	return &FilesystemObserver{}
}

func (o *FilesystemObserver) ObserveOperation(volume, operation string, durationSeconds float64, err error) {
	FilesystemOperationDuration.WithLabelValues(volume, operation).Observe(durationSeconds)
	if err != nil {
		FilesystemOperationErrors.WithLabelValues(volume, operation).Inc()
	}
}

func (o *FilesystemObserver) ObserveRetryAttempt(retryOp, volume string) {
	FilesystemRetryAttempts.WithLabelValues(retryOp, volume).Inc()
}

func (o *FilesystemObserver) ObserveRetrySuccess(retryOp, volume string) {
	FilesystemRetrySuccess.WithLabelValues(retryOp, volume).Inc()
}

func (o *FilesystemObserver) ObserveRetryFailure(retryOp, volume string) {
	FilesystemRetryFailures.WithLabelValues(retryOp, volume).Inc()
}

func (o *FilesystemObserver) ObserveRetryDuration(retryOp, volume string, durationSeconds float64) {
	FilesystemRetryDuration.WithLabelValues(retryOp, volume).Observe(durationSeconds)
}

func (o *FilesystemObserver) ObserveStaleError(retryOp, volume string) {
	FilesystemStaleErrors.WithLabelValues(retryOp, volume).Inc()
}

func (o *FilesystemObserver) ObserveScanEntry(entryType, event string) {
	ScannerEntriesTotal.WithLabelValues(entryType, event).Inc()
}

func (o *FilesystemObserver) ObserveScanDuration(durationSeconds float64) {
	ScannerScanDuration.Observe(durationSeconds)
}
