package thumbnails

import (
	"sync/atomic"
	"time"
)

// RunStatistics are the counters of one command run. They are created when
// the run starts and returned to the caller once the summary is rendered.
type RunStatistics struct {
	Folders    int
	Files      int
	Images     int
	Operations int
	Failed     int
	// FailedPaths lists the paths counted in Failed, in order.
	FailedPaths []string
	// Size is the scanned size for create runs and the space saved for
	// delete runs.
	Size     int64
	LastFile string
	Started  time.Time
	Elapsed  time.Duration
}

func newRunStatistics() *RunStatistics {
	return &RunStatistics{Started: time.Now()}
}

func (s *RunStatistics) trackFailure(path string) {
	s.Failed++
	s.FailedPaths = append(s.FailedPaths, path)
}

func (s *RunStatistics) finish() {
	s.Elapsed = time.Since(s.Started)
}

// Counters returns the counters by name, for metrics.
func (s *RunStatistics) Counters() map[string]int {
	return map[string]int{
		"folders":    s.Folders,
		"files":      s.Files,
		"images":     s.Images,
		"operations": s.Operations,
		"failed":     s.Failed,
	}
}

// CancelFlag asks a running command to stop. It is set from outside the
// run, usually by a signal handler, and never cleared. The work in progress
// for the current item finishes; nothing new is started.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel sets the flag.
func (f *CancelFlag) Cancel() {
	f.set.Store(true)
}

// IsSet reports whether Cancel was called. A nil flag is never set.
func (f *CancelFlag) IsSet() bool {
	return f != nil && f.set.Load()
}
