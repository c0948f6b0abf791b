// Package filelock provides advisory file locks so that several equilibrium
// processes sharing one registry directory never interleave snapshot writes.
package filelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

const (
	lockFileMode  = 0o600
	retryInterval = 10 * time.Millisecond
)

// ErrBusy is returned when the lock is still held by someone else once the
// caller's context is done.
var ErrBusy = errors.New("lock is held by another process")

// Lock acquires an exclusive advisory lock on the file at path, creating it if
// needed. It polls until the lock is free or ctx is done. The returned function
// releases the lock.
func Lock(ctx context.Context, path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, lockFileMode) //nolint:gosec // lock file inside the registry directory
	if err != nil {
		return nil, err
	}

	for {
		ok, err := tryLockFile(f)
		if err != nil {
			_ = f.Close()
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return nil, fmt.Errorf("%w: %s: %w", ErrBusy, path, ctx.Err())
		case <-time.After(retryInterval):
		}
	}

	return func() error {
		return errors.Join(unlockFile(f), f.Close())
	}, nil
}

// With runs fn while holding the lock at path. Errors from fn and from
// releasing the lock are both reported.
func With(ctx context.Context, path string, fn func() error) error {
	unlock, err := Lock(ctx, path)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	fnErr := fn()
	if err := unlock(); err != nil {
		return errors.Join(fnErr, fmt.Errorf("releasing lock: %w", err))
	}
	return fnErr
}
