package orchestrator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/conn-castle/devsetup/internal/messages"
)

// ErrLocked means another apply run holds the run lock.
var ErrLocked = errors.New("another devsetup run is in progress")

// Locker guards a run against concurrent apply runs on the same host.
type Locker interface {
	Acquire(path string) (release func() error, err error)
}

var flockFn = unix.Flock

// FileLocker takes a non-blocking exclusive flock on a lock file.
type FileLocker struct{}

// Acquire opens or creates path and locks it without waiting.
func (FileLocker) Acquire(path string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf(messages.LockOpenFmt, path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf(messages.LockOpenFmt, path, err)
	}
	if err := flockFn(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
		}
		return nil, fmt.Errorf(messages.LockAcquireFmt, path, err)
	}
	return func() error {
		if err := flockFn(int(file.Fd()), unix.LOCK_UN); err != nil {
			_ = file.Close()
			return err
		}
		return file.Close()
	}, nil
}
