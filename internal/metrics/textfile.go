package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// RunSummary is what a finished command run reports to the metrics.
type RunSummary struct {
	Command         string
	Status          string
	DurationSeconds float64
	FinishedUnix    float64
	Counters        map[string]int
	Bytes           int64
}

// RecordRun updates the command run metrics.
func RecordRun(s RunSummary) {
	CommandRunsTotal.WithLabelValues(s.Command, s.Status).Inc()
	CommandLastRunTimestamp.WithLabelValues(s.Command).Set(s.FinishedUnix)
	CommandLastRunDuration.WithLabelValues(s.Command).Set(s.DurationSeconds)
	for name, value := range s.Counters {
		CommandLastRunItems.WithLabelValues(s.Command, name).Set(float64(value))
	}
	CommandLastRunBytes.WithLabelValues(s.Command).Set(float64(s.Bytes))
}

// WriteTextfile writes every registered metric to path in the text
// exposition format, for node-exporter's textfile collector. The file is
// replaced atomically.
func WriteTextfile(path string) error {
	return writeTextfile(path, prometheus.DefaultGatherer)
}

func writeTextfile(path string, g prometheus.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
