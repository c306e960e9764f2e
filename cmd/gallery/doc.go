// Command gallery maintains the thumbnails of the gallery's users.
//
// Usage:
//
//	gallery create-thumbnails [--path=/alice/files/Holidays] [--all] [-r] [-q] [user_id...]
//	gallery delete-thumbnails [--path=/alice/files/Holidays] [--all] [-c] [-y] [-q] [user_id...]
//
// create-thumbnails rescans the files folder of each user and generates the
// thumbnails that are missing, or all of them with --regenerate.
// delete-thumbnails removes the thumbnails of the files below --path, or the
// whole thumbnails folder of each user. With --cache only the cache entries
// of the thumbnails folder are dropped and the files stay on disk.
//
// With --path the user is taken from the path, the user list and --all are
// ignored.
//
// # Configuration
//
// Settings come from the TOML file given with --config and the environment:
//
//   - GALLERY_DATA_DIR: directory holding one home folder per user
//   - GALLERY_DATABASE: SQLite database path (default: <data dir>/gallery.db)
//   - GALLERY_LOCKING: none, file or database
//   - GALLERY_LOCK_DIR: directory of the lock files
//   - GALLERY_ENCRYPTION: refuse to create thumbnails when true
//   - GALLERY_USE_VIPS: render with libvips instead of pure Go
//   - GALLERY_VIDEO_PREVIEWS: extract video frames with FFmpeg
//   - GALLERY_METRICS_TEXTFILE: write the run metrics to this file
//   - LOG_LEVEL, LOG_FILE, LOG_MAX_SIZE_MB: logging
//   - GOMEMLIMIT: memory limit (auto-detected from cgroups if not set)
//
// # Interruption
//
// The first SIGINT or SIGTERM lets the current file finish, commits what was
// scanned and prints the summary of the partial run.
//
// # Exit Status
//
// Invalid input and declined confirmations exit with 0 after printing the
// reason. Permission problems and unexpected errors exit with 1.
package main
