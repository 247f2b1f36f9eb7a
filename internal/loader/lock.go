package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/odyssey-erp/quadro/internal/shared"
)

// LockPath is the lock file guarding builds of the store at path.
func LockPath(path string) string {
	return path + ".lock"
}

// lockStore takes the cross-process build lock without blocking; a held lock is ErrBusy.
func lockStore(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("loader: create store directory: %w: %w", shared.ErrStorage, err)
	}
	lock := flock.New(LockPath(path))
	acquired, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("loader: acquire lock: %w: %w", shared.ErrStorage, err)
	}
	if !acquired {
		return nil, fmt.Errorf("loader: %s: %w", path, shared.ErrBusy)
	}
	return lock, nil
}
