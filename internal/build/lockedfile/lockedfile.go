// Package lockedfile serializes builds of the same output directory across
// processes with an advisory file lock.
package lockedfile

import (
	"os"
	"path/filepath"
)

// Mutex is an inter-process mutex backed by a lock file.
type Mutex struct {
	path string
}

// MutexAt returns a Mutex using the file at path. The file is created on
// first Lock.
func MutexAt(path string) *Mutex {
	return &Mutex{path: path}
}

// Lock blocks until the lock is held and returns the function that
// releases it.
func (mu *Mutex) Lock() (unlock func(), err error) {
	if err := os.MkdirAll(filepath.Dir(mu.path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(mu.path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, err
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, &os.PathError{Op: "lock", Path: mu.path, Err: err}
	}
	return func() {
		unlockFile(f)
		f.Close()
	}, nil
}
