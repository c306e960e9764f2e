package memory

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/metrics"
)

// Config holds memory guard configuration
type Config struct {
	// MemoryLimitBytes is the soft memory limit (0 = use GOMEMLIMIT or no limit)
	MemoryLimitBytes int64

	// CriticalWaterMark is the share of the limit above which work waits (0.0-1.0)
	CriticalWaterMark float64

	// RecheckInterval is how long to wait between checks while over the mark
	RecheckInterval time.Duration

	// MaxWait bounds the total wait; work proceeds after it
	MaxWait time.Duration
}

// DefaultConfig returns sensible defaults for the memory guard
func DefaultConfig() Config {
	return Config{
		CriticalWaterMark: 0.85,
		RecheckInterval:   250 * time.Millisecond,
		MaxWait:           10 * time.Second,
	}
}

// Monitor provides backpressure before memory heavy steps such as decoding
// a large image. It is polled synchronously; there is no background loop.
type Monitor struct {
	config    Config
	limit     int64
	readAlloc func() uint64
}

// NewMonitor creates a new memory monitor
func NewMonitor(config Config) *Monitor {
	limit := config.MemoryLimitBytes

	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
			logging.Debug("Memory monitor using GOMEMLIMIT: %s", formatBytes(limit))
		}
	}

	return &Monitor{
		config: config,
		limit:  limit,
		readAlloc: func() uint64 {
			var stats runtime.MemStats
			runtime.ReadMemStats(&stats)
			return stats.Alloc
		},
	}
}

// Usage returns heap allocation as a ratio of the limit, 0 without a limit.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	usage := float64(m.readAlloc()) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)
	return usage
}

// WaitForHeadroom returns once usage is below the critical mark, forcing a
// GC while it waits. After MaxWait it gives up and lets the caller proceed.
// It returns ctx.Err() if the context ends first.
func (m *Monitor) WaitForHeadroom(ctx context.Context) error {
	if m.limit == 0 {
		return nil
	}

	usage := m.Usage()
	if usage < m.config.CriticalWaterMark {
		return nil
	}

	logging.Warn("Memory critical (%.1f%% of limit), pausing before next preview", usage*100)
	metrics.MemoryPaused.Set(1)
	metrics.MemoryGCPauses.Inc()
	defer metrics.MemoryPaused.Set(0)

	deadline := time.Now().Add(m.config.MaxWait)
	for {
		debug.FreeOSMemory()

		if usage = m.Usage(); usage < m.config.CriticalWaterMark {
			logging.Info("Memory recovered (%.1f%% of limit), resuming", usage*100)
			return nil
		}
		if time.Now().After(deadline) {
			logging.Warn("Memory still at %.1f%% of limit after %v, continuing anyway", usage*100, m.config.MaxWait)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.config.RecheckInterval):
		}
	}
}
