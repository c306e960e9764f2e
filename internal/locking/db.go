package locking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gallery-thumbs/internal/database"
)

// Locks older than this are considered abandoned.
const defaultLockTTL = time.Hour

// LockStore is the lock table the database provider works on.
type LockStore interface {
	AcquireLock(ctx context.Context, key string, exclusive bool, ttl time.Duration) error
	ReleaseLock(ctx context.Context, key string, exclusive bool) error
}

// DBProvider keeps locks in the metadata database, so lock changes and cache
// writes are serialized by the database itself.
type DBProvider struct {
	store LockStore
	ttl   time.Duration
}

// NewDBProvider creates a provider backed by store.
func NewDBProvider(store LockStore) *DBProvider {
	return &DBProvider{store: store, ttl: defaultLockTTL}
}

func (p *DBProvider) AcquireLock(ctx context.Context, path string, lockType LockType) error {
	err := p.store.AcquireLock(ctx, path, lockType == LockExclusive, p.ttl)
	if errors.Is(err, database.ErrLocked) {
		err = fmt.Errorf("%w: %s", ErrLocked, path)
	}
	observe(KindDatabase, lockType, err)
	return err
}

func (p *DBProvider) ReleaseLock(ctx context.Context, path string, lockType LockType) error {
	return p.store.ReleaseLock(ctx, path, lockType == LockExclusive)
}

func (p *DBProvider) Transactional() bool { return true }
func (p *DBProvider) Name() string        { return KindDatabase }
