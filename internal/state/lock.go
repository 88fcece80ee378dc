package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when another live process holds the lock.
var ErrLocked = errors.New("state file is locked")

// Lock is a PID file guarding a state file.
type Lock struct {
	path string
}

// LockPath returns the lock file used for the state file at statePath.
func LockPath(statePath string) string {
	return statePath + ".lock"
}

// AcquireLock creates the lock file for statePath with the current PID.
// A lock left behind by a process that is no longer running is taken over.
func AcquireLock(statePath string) (*Lock, error) {
	path := LockPath(statePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}

	for range 2 {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644) // #nosec G302 G304
		if err == nil {
			_, werr := f.WriteString(strconv.Itoa(os.Getpid()))
			cerr := f.Close()
			if err := errors.Join(werr, cerr); err != nil {
				_ = os.Remove(path)
				return nil, fmt.Errorf("writing lock file: %w", err)
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}

		held, pid, err := IsHeld(statePath)
		if err != nil {
			return nil, err
		}
		if held {
			return nil, fmt.Errorf("%w: another opsprov run (PID %d) owns %s", ErrLocked, pid, statePath)
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("removing stale lock: %w", err)
		}
	}
	return nil, fmt.Errorf("%w: could not acquire %s", ErrLocked, path)
}

// Release removes the lock file.
func (l *Lock) Release() error {
	err := os.Remove(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// IsHeld checks if the lock for statePath is held by a running process.
func IsHeld(statePath string) (bool, int, error) {
	data, err := os.ReadFile(LockPath(statePath)) // #nosec G304
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, 0, nil
		}
		return false, 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return false, 0, nil
	}
	return isProcessRunning(pid), pid, nil
}

func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
