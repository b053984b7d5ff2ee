package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

const lockFile = "treeagent.lock"

// ErrLocked is returned by TryLock when another process owns the workspace.
var ErrLocked = errors.New("workspace is in use by another treeagent process")

// Lock is an exclusive advisory lock on a workspace. One agent works a
// workspace at a time.
type Lock struct {
	file *os.File
}

// TryLock takes the workspace lock of dir without blocking.
func (m *Manager) TryLock(dir string) (*Lock, error) {
	file, err := os.OpenFile(filepath.Join(dir, lockFile), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("locking workspace: %w", err)
	}

	return &Lock{file: file}, nil
}

// Release drops the lock. It is safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		_ = l.file.Close()
		return fmt.Errorf("unlocking workspace: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	return err
}
