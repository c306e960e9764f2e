package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/google/uuid"

	"gallery-thumbs/internal/config"
	"gallery-thumbs/internal/database"
	"gallery-thumbs/internal/filesystem"
	"gallery-thumbs/internal/locking"
	"gallery-thumbs/internal/logging"
	"gallery-thumbs/internal/media"
	"gallery-thumbs/internal/memory"
	"gallery-thumbs/internal/metrics"
	"gallery-thumbs/internal/thumbnails"
	"gallery-thumbs/internal/users"
)

// app holds what a command run is wired from.
type app struct {
	cfg       *config.Config
	runID     string
	db        *database.Database
	locks     locking.Provider
	mounts    *filesystem.MountManager
	root      *filesystem.Root
	users     *users.Manager
	generator *media.Generator
	vips      bool
	logs      io.Closer
}

func newApp(ctx context.Context, command, configPath string) (*app, error) {
	a := &app{
		runID: uuid.NewString(),
		logs:  logging.ConfigureOutput(logging.FileConfigFromEnv()),
	}

	logging.SetRunID(a.runID)
	config.LogStartup(command, a.runID)
	config.LogMemoryConfig(memory.ConfigureFromEnv())

	cfg, err := config.Load(configPath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	a.cfg = cfg

	if err := config.EnsureDataDir(cfg.DataDir); err != nil {
		a.close()
		return nil, err
	}

	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(volumes(cfg)))
	metrics.InitializeMetrics()
	metrics.SetAppInfo(config.Version, runtime.Version(), a.runID)

	dbStart := time.Now()
	a.db, err = database.New(ctx, cfg.DatabasePath)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	config.LogDatabaseInit(cfg.DatabasePath, time.Since(dbStart))
	if last, err := a.db.GetLastRun(ctx, command); err != nil {
		logging.Warn("Failed to read the last %s run: %v", command, err)
	} else {
		config.LogLastRun(command, last)
	}

	a.locks, err = locking.New(cfg.Locking, cfg.LockDir, a.db)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize locking: %w", err)
	}
	logging.Info("  Locking:         %s", a.locks.Name())

	if cfg.UseVips {
		media.InitVips()
		a.vips = true
	}
	if cfg.VideoPreviews {
		if err := config.CheckFFmpeg(ctx); err != nil {
			logging.Warn("Video previews disabled: %v", err)
		}
	}

	a.mounts = filesystem.NewMountManager(cfg.DataDir, a.db, cfg.Mounts)
	a.root = filesystem.NewRoot(a.mounts, a.locks)
	a.users = users.NewManager(cfg.DataDir)
	a.generator = media.NewGenerator(a.root, media.Options{
		Quality:       cfg.PreviewQuality,
		VideoPreviews: cfg.VideoPreviews,
		Monitor:       memory.NewMonitor(memory.DefaultConfig()),
	})
	return a, nil
}

// volumes labels the filesystem metrics by where a path lives.
func volumes(cfg *config.Config) map[string]string {
	v := map[string]string{
		"data":     cfg.DataDir,
		"database": filepath.Dir(cfg.DatabasePath),
	}
	for i, m := range cfg.Mounts {
		v[fmt.Sprintf("external%d", i)] = m.Root
	}
	return v
}

func (a *app) close() {
	if a.vips {
		media.ShutdownVips()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logging.Error("failed to close database: %v", err)
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

func (a *app) env(cancel *thumbnails.CancelFlag) thumbnails.Env {
	return thumbnails.Env{
		Out:        os.Stdout,
		Users:      a.users,
		FS:         a.root,
		Previews:   previewProvider{a.generator},
		Encryption: encryptionStatus(a.cfg.EncryptionEnabled),
		Tx:         a.db,
		Changes:    filesystem.NewChangePropagator(a.mounts),
		Locks:      a.locks,
		Cancel:     cancel,
	}
}

// run executes one command with cancellation on SIGINT/SIGTERM and
// records its outcome.
func (a *app) run(ctx context.Context, command string, fn func(context.Context, thumbnails.Env) (*thumbnails.RunStatistics, error)) error {
	cancel := &thumbnails.CancelFlag{}
	stopSignals := notifyCancel(cancel)
	defer stopSignals()

	stats, err := fn(ctx, a.env(cancel))
	a.record(ctx, command, stats, err, cancel.IsSet())
	return exitError(err)
}

func (a *app) record(ctx context.Context, command string, stats *thumbnails.RunStatistics, err error, interrupted bool) {
	status := runStatus(err, interrupted)
	finished := time.Now()

	summary := metrics.RunSummary{
		Command:      command,
		Status:       status,
		FinishedUnix: float64(finished.Unix()),
	}
	if stats != nil {
		summary.DurationSeconds = stats.Elapsed.Seconds()
		summary.Counters = stats.Counters()
		summary.Bytes = stats.Size
	}
	metrics.RecordRun(summary)

	if status == "success" {
		if err := a.db.SetLastRun(ctx, command, finished); err != nil {
			logging.Warn("Failed to record the last %s run: %v", command, err)
		}
	}
	if a.cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
			logging.Warn("%v", err)
		}
	}
	logging.Info("%s %s (run %s)", command, status, a.runID)
}

type encryptionStatus bool

func (e encryptionStatus) IsEnabled() bool { return bool(e) }

// previewProvider exposes the media generator through the interfaces of the
// thumbnails package.
type previewProvider struct {
	g *media.Generator
}

func (p previewProvider) SupportedMimeTypes() []string { return p.g.SupportedMimeTypes() }

func (p previewProvider) IsSupported(mime string) bool { return p.g.IsSupported(mime) }

func (p previewProvider) Preview(_ context.Context, user string, node *filesystem.Node) (thumbnails.Preview, error) {
	preview, err := p.g.PreviewForNode(user, node)
	if err != nil {
		return nil, err
	}
	return preview, nil
}
