package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/metrics"
)

const (
	// DefaultMemoryRatio is the share of container memory given to the Go heap.
	// The rest is left for libvips, ffmpeg and goroutine stacks.
	DefaultMemoryRatio = 0.80
)

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether GOMEMLIMIT was set
	Configured bool

	// Source indicates where the configuration came from
	Source string // "GOMEMLIMIT", "MEMORY_LIMIT", or "none"

	// ContainerLimit is the container memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the configured GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	// Ratio is the memory ratio used (0 if not applicable)
	Ratio float64
}

// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit.
// Call this early in main() before significant allocations.
//
// Environment variables:
//   - GOMEMLIMIT: If set, this takes precedence (standard Go env var)
//   - MEMORY_LIMIT: Container memory limit in bytes
//   - MEMORY_RATIO: Optional ratio of memory to use for Go heap (default: 0.80)
func ConfigureFromEnv() ConfigResult {
	result := resolve(os.Getenv)

	switch result.Source {
	case "GOMEMLIMIT":
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			result.Configured = true
			result.GoMemLimit = limit
		}
		logging.Info("GOMEMLIMIT set via environment: %s", os.Getenv("GOMEMLIMIT"))
	case "MEMORY_LIMIT":
		debug.SetMemoryLimit(result.GoMemLimit)
		logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s container limit)",
			formatBytes(result.GoMemLimit),
			result.Ratio*100,
			formatBytes(result.ContainerLimit),
		)
	default:
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
	}

	metrics.GoMemLimit.Set(float64(result.GoMemLimit))
	return result
}

// resolve computes the memory configuration without touching the runtime.
func resolve(getenv func(string) string) ConfigResult {
	if getenv("GOMEMLIMIT") != "" {
		return ConfigResult{Source: "GOMEMLIMIT"}
	}

	result := ConfigResult{Source: "none"}

	memLimitStr := getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		return result
	}

	memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
	if err != nil || memLimit <= 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q, GOMEMLIMIT not configured", memLimitStr)
		return result
	}

	ratio := DefaultMemoryRatio
	if ratioStr := getenv("MEMORY_RATIO"); ratioStr != "" {
		if parsed, err := strconv.ParseFloat(ratioStr, 64); err == nil && parsed > 0 && parsed <= 1.0 {
			ratio = parsed
		} else {
			logging.Warn("MEMORY_RATIO %q invalid or out of range (0.0-1.0), using default %.2f", ratioStr, DefaultMemoryRatio)
		}
	}

	return ConfigResult{
		Configured:     true,
		Source:         "MEMORY_LIMIT",
		ContainerLimit: memLimit,
		GoMemLimit:     int64(float64(memLimit) * ratio),
		Ratio:          ratio,
	}
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
