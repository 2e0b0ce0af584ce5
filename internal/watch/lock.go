package watch

import (
	"fmt"
	"os"
	"path/filepath"

	"tagsortd/internal/log"

	"github.com/gofrs/flock"
)

// InstanceLock keeps a second tagsortd from organizing the same directories.
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the lock at path without blocking. It fails when another
// process holds it.
func AcquireLock(path string) (*InstanceLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("another tagsortd instance holds %s", path)
	}

	log.LogWithFields(log.F("lock", path)).Debug("Acquired instance lock")
	return &InstanceLock{path: path, lock: lock}, nil
}

// Path returns the lock file path.
func (l *InstanceLock) Path() string {
	return l.path
}

// Release unlocks. The lock file itself is left in place.
func (l *InstanceLock) Release() {
	if l == nil {
		return
	}
	if err := l.lock.Unlock(); err != nil {
		log.LogWithFields(log.F("lock", l.path), log.F("error", err)).Warn("Failed to release instance lock")
	}
}
