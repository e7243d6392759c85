package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes work on one session across engine replicas.
// session.Manager takes it around every load-modify-save cycle.
type DistributedLocker interface {
	// Lock waits for key and holds it for at most ttl.
	// It gives up with the context's error. The caller owns the returned UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
