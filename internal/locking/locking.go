// Package locking provides cross-process file locking used to enforce
// the single-writer-per-document rule on chunk, embedding, and record
// stores (spec.md §5).
package locking

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	pkmserr "github.com/t0bybr/pkms/internal/errors"
)

// DocLock is an exclusive, cross-process lock scoped to one document.
// Readers never take this lock (spec.md §5: "readers are lock-free");
// only the writer of a given doc_id's pipeline stage acquires it.
type DocLock struct {
	path   string
	fl     *flock.Flock
	locked bool
}

// NewDocLock returns a lock for docID, backed by a file under dir
// (the pipeline passes its metadata directory).
func NewDocLock(dir, docID string) *DocLock {
	path := filepath.Join(dir, "."+docID+".lock")
	return &DocLock{path: path, fl: flock.New(path)}
}

// Lock blocks until the exclusive lock is acquired.
func (l *DocLock) Lock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeDiskFull, err)
	}
	if err := l.fl.Lock(); err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeLockFailed, err)
	}
	l.locked = true
	return nil
}

// TryLock attempts to acquire the lock without blocking.
func (l *DocLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, pkmserr.Wrap(pkmserr.ErrCodeDiskFull, err)
	}
	ok, err := l.fl.TryLock()
	if err != nil {
		return false, pkmserr.Wrap(pkmserr.ErrCodeLockFailed, err)
	}
	l.locked = ok
	return ok, nil
}

// Unlock releases the lock; safe to call when not held.
func (l *DocLock) Unlock() error {
	if !l.locked {
		return nil
	}
	err := l.fl.Unlock()
	l.locked = false
	if err != nil {
		return pkmserr.Wrap(pkmserr.ErrCodeLockFailed, err)
	}
	return nil
}
