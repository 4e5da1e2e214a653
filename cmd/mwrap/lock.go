package main

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = "mwrap.lock"

// acquireLock refuses to supervise a server directory another mwrap already owns.
func acquireLock(dir string) (func(), error) {
	fileLock := flock.New(filepath.Join(dir, lockFileName))

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another mwrap is already supervising %s (lock held on %s)", dir, fileLock.Path())
	}
	return func() { _ = fileLock.Unlock() }, nil
}
