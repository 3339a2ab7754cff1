package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/ibrahim-bhat/billflow_backend/config"
)

// DereferencePtr returns the pointed-to value or the zero value.
func DereferencePtr[T any](ptr *T, def ...T) T {
	if ptr != nil {
		return *ptr
	}
	var zero T
	if len(def) > 0 {
		return def[0]
	}
	return zero
}

// DateOnly truncates a timestamp to its calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// GlobalLock serializes writers on a shared resource (the inventory
// sweep, the sequence allocator) through redis. The returned release
// func must be deferred by the caller.
func GlobalLock(ctx context.Context, lockType string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", lockType, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lockKey := fmt.Sprintf("lock:%s", lockType)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock", lockType, err)
		return nil, errors.New("could not obtain lock for " + lockType)
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock", lockType, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
