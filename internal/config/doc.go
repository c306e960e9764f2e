// Package config loads the gallery configuration and logs startup
// information.
//
// # Configuration
//
// [Load] starts from [Default], applies an optional TOML file and then the
// environment:
//
//   - GALLERY_DATA_DIR: directory holding one folder per user (data_dir)
//   - GALLERY_DATABASE: SQLite metadata database (database_path, default <data_dir>/gallery.db)
//   - GALLERY_LOCK_DIR: lock files of the file locking provider (lock_dir, default <data_dir>/.locks)
//   - GALLERY_LOCKING: file, db or none (locking, default file)
//   - GALLERY_ENCRYPTION: server side encryption is enabled (encryption_enabled)
//   - GALLERY_VIDEO_PREVIEWS: generate video previews with ffmpeg (video_previews)
//   - GALLERY_USE_VIPS: decode images with libvips (use_vips, default true)
//   - GALLERY_METRICS_TEXTFILE: node exporter textfile written after each run (metrics_textfile)
//
// Logging is configured separately with LOG_LEVEL, DEBUG, LOG_FILE and
// LOG_MAX_SIZE_MB, and memory with MEMORY_LIMIT, MEMORY_RATIO and GOMEMLIMIT.
//
// External storages are declared as [[mounts]] tables:
//
//	[[mounts]]
//	user = "*"
//	mount_point = "NAS"
//	root = "/mnt/nas/photos"
//	previews = true
//	read_only = true
//
// # Build Information
//
// Version, Commit and BuildTime are injected via ldflags and exposed via
// [GetBuildInfo].
package config
