package config

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/memory"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
	GoVersion string
	OS        string
	Arch      string
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// LogStartup logs the build and system information. Commands call it
// before loading the configuration.
func LogStartup(command, runID string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("GALLERY %s", strings.ToUpper(command))
	logging.Info("------------------------------------------------------------")
	info := GetBuildInfo()
	logging.Info("  Version:         %s", info.Version)
	logging.Info("  Commit:          %s", info.Commit)
	logging.Info("  Build Time:      %s", info.BuildTime)
	logging.Info("  Run ID:          %s", runID)
	logging.Info("  Started:         %s", time.Now().Format(time.RFC1123))
	logging.Info("  Go version:      %s", info.GoVersion)
	logging.Info("  OS/Arch:         %s/%s", info.OS, info.Arch)
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if logging.IsDebugEnabled() {
		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
		logging.Debug("  Process owner:   uid=%d gid=%d", os.Getuid(), os.Getgid())
	}
}

// LogLastRun logs when command last completed successfully. A zero time
// means it never did.
func LogLastRun(command string, last time.Time) {
	if last.IsZero() {
		logging.Info("  Last run:        never")
		return
	}
	logging.Info("  Last run:        %s (%s ago)", last.Format(time.RFC1123), time.Since(last).Round(time.Second))
	logging.Debug("Previous %s run finished at %s", command, last.Format(time.RFC3339))
}

// LogMemoryConfig logs the outcome of memory.ConfigureFromEnv.
func LogMemoryConfig(result memory.ConfigResult) {
	if !result.Configured {
		logging.Debug("  Memory limit:    not configured")
		return
	}
	logging.Info("  Memory limit:    %d MiB (source: %s)", result.GoMemLimit/(1<<20), result.Source)
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(path string, duration time.Duration) {
	logging.Info("  [OK] Database %s opened in %v", path, duration)
}

// CheckFFmpeg verifies that ffmpeg can be run and logs its version.
func CheckFFmpeg(ctx context.Context) error {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("ffmpeg not found in PATH")
	}
	logging.Debug("  FFmpeg path: %s", path)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, "ffmpeg", "-version").Output()
	if err != nil {
		return fmt.Errorf("failed to get ffmpeg version: %w", err)
	}

	if first, _, _ := strings.Cut(string(output), "\n"); first != "" {
		logging.Debug("  FFmpeg version: %s", strings.TrimSpace(first))
	}
	return nil
}

// EnsureDataDir checks that the data directory exists and is writable.
func EnsureDataDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", path)
	}

	testFile := filepath.Join(path, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return fmt.Errorf("data directory %s is not writable: %w", path, err)
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
