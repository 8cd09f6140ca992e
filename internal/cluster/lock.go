package cluster

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

// DefaultLockWait bounds how long a transition waits for a busy cluster
const DefaultLockWait = 5 * time.Second

const lockRetryDelay = 50 * time.Millisecond

// Locker hands out per-cluster exclusive locks. Within a process a
// semaphore per name serializes callers; across processes an advisory file
// lock under <root>/.locks does the same.
type Locker struct {
	dir  string
	wait time.Duration

	mu   sync.Mutex
	sems map[string]chan struct{}
}

// NewLocker creates a locker keeping its lock files below root.
// wait <= 0 selects DefaultLockWait.
func NewLocker(root string, wait time.Duration) *Locker {
	if wait <= 0 {
		wait = DefaultLockWait
	}
	return &Locker{
		dir:  filepath.Join(root, LocksDirName),
		wait: wait,
		sems: make(map[string]chan struct{}),
	}
}

func (l *Locker) sem(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[name]
	if !ok {
		s = make(chan struct{}, 1)
		l.sems[name] = s
	}
	return s
}

// Lock acquires the exclusive lock of a cluster. It returns ErrLocked when
// the lock stays busy for longer than the configured wait.
// The returned function releases the lock.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, l.wait)
	defer cancel()

	sem := l.sem(name)
	select {
	case sem <- struct{}{}:
	case <-waitCtx.Done():
		return nil, l.waitErr(ctx, name)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		<-sem
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(filepath.Join(l.dir, name+".lock"))
	ok, err := fl.TryLockContext(waitCtx, lockRetryDelay)
	if err != nil || !ok {
		<-sem
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("failed to lock cluster %s: %w", name, err)
		}
		return nil, l.waitErr(ctx, name)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = fl.Unlock()
			<-sem
		})
	}, nil
}

func (l *Locker) waitErr(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s", ErrLocked, name)
}
