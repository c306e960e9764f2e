package logging

import (
	"io"
	"log"
	"os"
	"strconv"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB  = 50
	defaultMaxBackups = 3
)

// FileConfig describes a rotated log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
}

// FileConfigFromEnv reads LOG_FILE and LOG_MAX_SIZE_MB.
// Path is empty when LOG_FILE is not set.
func FileConfigFromEnv() FileConfig {
	cfg := FileConfig{
		Path:       os.Getenv("LOG_FILE"),
		MaxSizeMB:  defaultMaxSizeMB,
		MaxBackups: defaultMaxBackups,
	}
	if v := os.Getenv("LOG_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxSizeMB = n
		}
	}
	return cfg
}

// ConfigureOutput points the standard logger at a rotated log file. With an
// empty path logs stay on stderr and the returned closer is a no-op.
func ConfigureOutput(cfg FileConfig) io.Closer {
	if cfg.Path == "" {
		return io.NopCloser(nil)
	}

	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = defaultMaxSizeMB
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = defaultMaxBackups
	}

	w := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	log.SetOutput(w)
	return w
}
