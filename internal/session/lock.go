package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	lockName       = ".lock"
	lockRetryDelay = 50 * time.Millisecond
)

// AcquireShared takes the shared lock of session id, waiting up to the
// configured lock timeout. The returned function releases it.
func (s *Store) AcquireShared(ctx context.Context, id string) (func(), error) {
	dir, err := s.Dir(id)
	if err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(dir, lockName))
	ctx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()

	ok, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("session %s: %w", id, ErrBusy)
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock session %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrBusy)
	}

	// The session may have been removed while we waited.
	if _, err := os.Stat(dir); err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return func() { lock.Unlock() }, nil
}

// lockExclusive takes the exclusive lock of session id without waiting.
func (s *Store) lockExclusive(id string) (*flock.Flock, error) {
	dir, err := s.Dir(id)
	if err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock session %s: %w", id, err)
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrBusy)
	}
	return lock, nil
}
