package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	docerrors "github.com/Aman-CERP/docsearch/internal/errors"
)

// LockFileName is created in the lock directory while maintenance runs.
const LockFileName = ".maintenance.lock"

// ErrMaintenanceRunning matches the error returned when another process
// holds the maintenance lock.
var ErrMaintenanceRunning = &docerrors.DocError{Code: docerrors.ErrCodeMaintenanceBusy}

// maintenanceLock is a cross-process exclusive lock on <dir>/.maintenance.lock.
type maintenanceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newMaintenanceLock(dir string) *maintenanceLock {
	path := filepath.Join(dir, LockFileName)
	return &maintenanceLock{path: path, flock: flock.New(path)}
}

// tryLock acquires the lock without blocking.
func (l *maintenanceLock) tryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire maintenance lock: %w", err)
	}
	if !ok {
		return docerrors.New(docerrors.ErrCodeMaintenanceBusy, "another maintenance reindex is running", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Wait for the running reindex to finish")
	}
	l.locked = true
	return nil
}

// unlock releases the lock. Safe to call when not held.
func (l *maintenanceLock) unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("release maintenance lock: %w", err)
	}
	return nil
}
