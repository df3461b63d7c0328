package singleinstance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning means another process holds the instance lock. The
// caller must exit before constructing any task or UI state.
var ErrAlreadyRunning = errors.New("another instance is already running")

// Guard holds the process-wide exclusive advisory lock.
type Guard struct {
	lock        *flock.Flock
	releaseOnce sync.Once
}

// Acquire takes a non-blocking exclusive lock on the well-known path.
// Returns ErrAlreadyRunning when the lock is held elsewhere.
func Acquire(path string) (*Guard, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire instance lock %s: %w", path, err)
	}
	if !locked {
		return nil, ErrAlreadyRunning
	}

	return &Guard{lock: lock}, nil
}

// Release drops the lock and removes the lock file. Safe to call more
// than once and on every exit path.
func (g *Guard) Release() {
	if g == nil {
		return
	}

	g.releaseOnce.Do(func() {
		path := g.lock.Path()
		_ = g.lock.Unlock()
		_ = os.Remove(path)
	})
}
