package filesystem

// Observer records filesystem and scanner metrics. The metrics package
// provides the implementation; this package only depends on the interface.
type Observer interface {
	// ObserveOperation records duration and error status for a filesystem
	// operation. volume is the label from the VolumeResolver, operation is
	// "stat", "readdir", "write" or "remove".
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	// Retry metrics for ESTALE handling. retryOp is "stat", "open" or "readdir".
	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)

	// Scanner metrics. entryType is "file" or "folder", event is "scanned",
	// "added" or "removed".
	ObserveScanEntry(entryType, event string)
	ObserveScanDuration(durationSeconds float64)
}

// defaultObserver is the package-level observer set at startup.
// If nil, metric recording is skipped (safe for tests).
var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
func SetObserver(o Observer) {
	defaultObserver = o
}

// noopObserver is used until SetObserver is called.
type noopObserver struct{}

func (noopObserver) ObserveOperation(string, string, float64, error) {}
func (noopObserver) ObserveRetryAttempt(string, string)              {}
func (noopObserver) ObserveRetrySuccess(string, string)              {}
func (noopObserver) ObserveRetryFailure(string, string)              {}
func (noopObserver) ObserveRetryDuration(string, string, float64)    {}
func (noopObserver) ObserveStaleError(string, string)                {}
func (noopObserver) ObserveScanEntry(string, string)                 {}
func (noopObserver) ObserveScanDuration(float64)                     {}

// observe is a nil-safe accessor for the package-level observer.
func observe() Observer {
	if defaultObserver == nil {
		return noopObserver{}
	}
	return defaultObserver
}
