package locking

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"gallery-thumbs/internal/logging"
)

// Default time to wait for a contended file lock
const defaultLockWait = 2 * time.Second

type heldLock struct {
	f      *flock.Flock
	shared int
}

// FileProvider locks paths with flock(2) on one lock file per path inside a
// lock directory. It does not serialize database writes.
type FileProvider struct {
	dir   string
	wait  time.Duration
	mu    sync.Mutex
	locks map[string]*heldLock
}

// NewFileProvider creates the lock directory if needed.
func NewFileProvider(dir string) (*FileProvider, error) {
	if dir == "" {
		return nil, fmt.Errorf("file locking requires a lock directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return &FileProvider{
		dir:   dir,
		wait:  defaultLockWait,
		locks: make(map[string]*heldLock),
	}, nil
}

func (p *FileProvider) lockFile(path string) string {
	sum := md5.Sum([]byte(path))
	return filepath.Join(p.dir, hex.EncodeToString(sum[:])+".lock")
}

// AcquireLock takes the lock, retrying until the wait time runs out.
func (p *FileProvider) AcquireLock(ctx context.Context, path string, lockType LockType) error {
	err := p.acquire(ctx, path, lockType)
	observe(KindFile, lockType, err)
	return err
}

func (p *FileProvider) acquire(ctx context.Context, path string, lockType LockType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if held, ok := p.locks[path]; ok {
		// This process already holds it; only another shared lock fits.
		if lockType == LockShared && held.shared > 0 {
			held.shared++
			return nil
		}
		return fmt.Errorf("%w: %s", ErrLocked, path)
	}

	f := flock.New(p.lockFile(path))

	ctx, cancel := context.WithTimeout(ctx, p.wait)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if lockType == LockExclusive {
		locked, err = f.TryLockContext(ctx, 50*time.Millisecond)
	} else {
		locked, err = f.TryRLockContext(ctx, 50*time.Millisecond)
	}
	if err != nil || !locked {
		logging.Debug("Could not take %s lock on %s: %v", lockType, path, err)
		return fmt.Errorf("%w: %s", ErrLocked, path)
	}

	held := &heldLock{f: f}
	if lockType == LockShared {
		held.shared = 1
	}
	p.locks[path] = held
	return nil
}

// ReleaseLock drops a lock taken with AcquireLock.
func (p *FileProvider) ReleaseLock(_ context.Context, path string, lockType LockType) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	held, ok := p.locks[path]
	if !ok {
		return nil
	}
	if lockType == LockShared && held.shared > 1 {
		held.shared--
		return nil
	}

	delete(p.locks, path)
	if err := held.f.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock %s: %w", path, err)
	}
	return nil
}

func (p *FileProvider) Transactional() bool { return false }
func (p *FileProvider) Name() string        { return KindFile }
