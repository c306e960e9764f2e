package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileConfigFromEnv(t *testing.T) {
	t.Setenv("LOG_FILE", "/var/log/gallery.log")
	t.Setenv("LOG_MAX_SIZE_MB", "10")

	cfg := FileConfigFromEnv()
	if cfg.Path != "/var/log/gallery.log" {
		t.Errorf("Path = %q", cfg.Path)
	}
	if cfg.MaxSizeMB != 10 {
		t.Errorf("MaxSizeMB = %d, want 10", cfg.MaxSizeMB)
	}
	if cfg.MaxBackups != defaultMaxBackups {
		t.Errorf("MaxBackups = %d, want %d", cfg.MaxBackups, defaultMaxBackups)
	}
}

func TestFileConfigFromEnvInvalidSize(t *testing.T) {
	t.Setenv("LOG_FILE", "")
	t.Setenv("LOG_MAX_SIZE_MB", "lots")

	cfg := FileConfigFromEnv()
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
	if cfg.MaxSizeMB != defaultMaxSizeMB {
		t.Errorf("MaxSizeMB = %d, want %d", cfg.MaxSizeMB, defaultMaxSizeMB)
	}
}

func TestConfigureOutputWritesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "gallery.log")
	defer log.SetOutput(os.Stderr)

	closer := ConfigureOutput(FileConfig{Path: logPath})
	Error("rotated %s", "message")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "[ERROR] rotated message") {
		t.Errorf("log file content = %q", data)
	}
}

func TestConfigureOutputNoPath(t *testing.T) {
	closer := ConfigureOutput(FileConfig{})
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}
