// Package lock guards against two bob instances supervising the same
// processes and project list.
package lock

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrAlreadyLocked reports that a live process holds the lock.
var ErrAlreadyLocked = fmt.Errorf("another instance is already running")

// InstanceLock is a PID-file based exclusive lock.
type InstanceLock struct {
	path string
}

// Acquire takes the lock at path, stealing it from a dead holder. A bounded
// number of steal attempts keeps two racing starters from ping-ponging
// remove and create forever.
func Acquire(path string) (*InstanceLock, error) {
	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d %d\n", os.Getpid(), time.Now().Unix())
			f.Close()
			return &InstanceLock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}
		if holderAlive(path) {
			return nil, ErrAlreadyLocked
		}
		// Stale lock from a crashed instance.
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
	}
	return nil, ErrAlreadyLocked
}

// Release removes the lock file.
func (l *InstanceLock) Release() {
	if l != nil {
		os.Remove(l.path)
	}
}

// holderAlive reports whether the PID recorded in the lock file still runs.
func holderAlive(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return false
	}
	pid, err := strconv.Atoi(fields[0])
	if err != nil || pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
