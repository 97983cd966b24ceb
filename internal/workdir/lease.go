package workdir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is created inside every leased directory.
const LockFileName = ".ytbatch.lock"

const lockRetryDelay = 100 * time.Millisecond

var (
	registryMu sync.Mutex
	registry   = map[string]chan struct{}{}
)

// Lease is exclusive use of one directory. Release must be called exactly once.
type Lease struct {
	dir  string
	slot chan struct{}
	lock *flock.Flock
	once sync.Once
}

// Acquire creates dir when missing and blocks until the directory is free or
// ctx is done.
func Acquire(ctx context.Context, dir string) (*Lease, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cleaned, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return nil, fmt.Errorf("resolve directory %q: %w", dir, err)
	}
	if err := os.MkdirAll(cleaned, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", cleaned, err)
	}

	slot := slotFor(cleaned)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lock := flock.New(filepath.Join(cleaned, LockFileName))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !ok {
		<-slot
		if err == nil {
			err = errors.New("lock not acquired")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("lock directory %q: %w", cleaned, err)
	}
	return &Lease{dir: cleaned, slot: slot, lock: lock}, nil
}

// Dir returns the absolute leased directory.
func (l *Lease) Dir() string {
	if l == nil {
		return ""
	}
	return l.dir
}

// Release gives up the lease. Subsequent calls are no-ops.
func (l *Lease) Release() error {
	if l == nil {
		return nil
	}
	var err error
	l.once.Do(func() {
		err = l.lock.Unlock()
		<-l.slot
	})
	return err
}

func slotFor(dir string) chan struct{} {
	registryMu.Lock()
	defer registryMu.Unlock()
	slot, ok := registry[dir]
	if !ok {
		slot = make(chan struct{}, 1)
		registry[dir] = slot
	}
	return slot
}
