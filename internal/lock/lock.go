// Package lock serializes work per key, either across processes through
// Redis or inside a single process.
package lock

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/Fi44er/roi_ledger/internal/models"
)

type Locker interface {
	// Acquire returns models.ErrLockHeld when another holder owns key.
	// The returned unlock func is safe to call more than once.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// AcquireWait retries Acquire every retry interval until the lock is taken
// or ctx is done.
func AcquireWait(ctx context.Context, l Locker, key string, ttl, retry time.Duration) (func(), error) {
	ticker := time.NewTicker(retry)
	defer ticker.Stop()

	for {
		unlock, err := l.Acquire(ctx, key, ttl)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, models.ErrLockHeld) {
			if ctx.Err() != nil {
				return nil, errors.Join(models.ErrLockHeld, ctx.Err())
			}
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(models.ErrLockHeld, ctx.Err())
		case <-ticker.C:
		}
	}
}

func UserKey(userID uint) string {
	return "withdrawal:user:" + strconv.FormatUint(uint64(userID), 10)
}
