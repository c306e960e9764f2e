package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/locking"
	"gallery-thumbs/internal/logging"
)

// Config holds the gallery configuration.
type Config struct {
	DataDir           string                     `toml:"data_dir"`
	DatabasePath      string                     `toml:"database_path"`
	LockDir           string                     `toml:"lock_dir"`
	Locking           string                     `toml:"locking"`
	EncryptionEnabled bool                       `toml:"encryption_enabled"`
	PreviewWidth      int                        `toml:"preview_width"`
	PreviewHeight     int                        `toml:"preview_height"`
	PreviewQuality    int                        `toml:"preview_quality"`
	VideoPreviews     bool                       `toml:"video_previews"`
	UseVips           bool                       `toml:"use_vips"`
	MetricsTextfile   string                     `toml:"metrics_textfile"`
	Mounts            []filesystem.ExternalMount `toml:"mounts"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:        "/var/lib/gallery/data",
		Locking:        locking.KindFile,
		PreviewWidth:   400,
		PreviewHeight:  200,
		PreviewQuality: 80,
		UseVips:        true,
	}
}

// Load builds the configuration from the defaults, the TOML file at path
// (skipped when path is empty) and the GALLERY_* environment variables, in
// that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	cfg.log(path)
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := toml.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("invalid config file %s:\n%s", path, strict.String())
		}
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnv("GALLERY_DATA_DIR", c.DataDir)
	c.DatabasePath = getEnv("GALLERY_DATABASE", c.DatabasePath)
	c.LockDir = getEnv("GALLERY_LOCK_DIR", c.LockDir)
	c.Locking = getEnv("GALLERY_LOCKING", c.Locking)
	c.EncryptionEnabled = getEnvBool("GALLERY_ENCRYPTION", c.EncryptionEnabled)
	c.VideoPreviews = getEnvBool("GALLERY_VIDEO_PREVIEWS", c.VideoPreviews)
	c.UseVips = getEnvBool("GALLERY_USE_VIPS", c.UseVips)
	c.MetricsTextfile = getEnv("GALLERY_METRICS_TEXTFILE", c.MetricsTextfile)
}

// finalize validates the configuration and fills in derived paths.
func (c *Config) finalize() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	dataDir, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	c.DataDir = dataDir

	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "gallery.db")
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Join(c.DataDir, ".locks")
	}

	c.Locking = strings.ToLower(c.Locking)
	switch c.Locking {
	case locking.KindFile, locking.KindDatabase, locking.KindNone:
	default:
		return fmt.Errorf("unknown locking provider %q (want %s, %s or %s)",
			c.Locking, locking.KindFile, locking.KindDatabase, locking.KindNone)
	}

	if c.PreviewWidth <= 0 || c.PreviewHeight <= 0 {
		return fmt.Errorf("preview size must be positive, got %dx%d", c.PreviewWidth, c.PreviewHeight)
	}

	for i, m := range c.Mounts {
		if m.MountPoint == "" || m.Root == "" {
			return fmt.Errorf("mount %d: mount_point and root are required", i+1)
		}
		if !filesystem.IsValidPath("/" + strings.Trim(m.MountPoint, "/")) {
			return fmt.Errorf("mount %d: invalid mount_point %q", i+1, m.MountPoint)
		}
	}
	return nil
}

func (c *Config) log(path string) {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if path != "" {
		logging.Info("  Config file:         %s", path)
	}
	logging.Info("  DATA_DIR:            %s", c.DataDir)
	logging.Info("  DATABASE:            %s", c.DatabasePath)
	logging.Info("  LOCKING:             %s", c.Locking)
	if c.Locking == locking.KindFile {
		logging.Info("  LOCK_DIR:            %s", c.LockDir)
	}
	logging.Info("  ENCRYPTION:          %s", enabledString(c.EncryptionEnabled))
	logging.Info("  PREVIEW_SIZE:        %dx%d", c.PreviewWidth, c.PreviewHeight)
	logging.Info("  VIDEO_PREVIEWS:      %s", enabledString(c.VideoPreviews))
	logging.Info("  LOG_LEVEL:           %s", logging.GetLevel())
	if c.MetricsTextfile != "" {
		logging.Info("  METRICS_TEXTFILE:    %s", c.MetricsTextfile)
	}
	for _, m := range c.Mounts {
		user := m.User
		if user == "" {
			user = "*"
		}
		logging.Info("  MOUNT:               %s -> /%s/files/%s", m.Root, user, strings.Trim(m.MountPoint, "/"))
	}
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
