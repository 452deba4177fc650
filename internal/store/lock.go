package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

const lockSuffix = ".lock"

// lockRetryDelay is how often a blocked caller re-tries the advisory lock.
const lockRetryDelay = 25 * time.Millisecond

// acquire takes an exclusive lock on lockPath, waiting at most timeout (or
// until ctx is done). A fresh handle is opened per call, so two operations in
// the same process contend exactly like two processes would.
func acquire(ctx context.Context, lockPath string, timeout time.Duration) (*flock.Flock, error) {
	lctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fl := flock.New(lockPath)

	locked, err := fl.TryLockContext(lctx, lockRetryDelay)
	if err != nil {
		_ = fl.Close()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, lockPath, timeout)
		}
		return nil, fmt.Errorf("lock %s: %w", lockPath, err)
	}

	if !locked {
		_ = fl.Close()
		return nil, fmt.Errorf("%w: %s after %s", ErrLockTimeout, lockPath, timeout)
	}

	return fl, nil
}
