package rediscache

import (
	"context"
	"time"
)

// ActivatorLock adapts Locker to nodectl.DistributedLock, giving every node
// process pointed at the same Redis instance one shared reconciliation
// lock key, so the Activator's pass is serialized cluster-wide rather than
// only within one process.
type ActivatorLock struct {
	locker *Locker
	key    *LockKey
}

// NewActivatorLock returns an ActivatorLock backed by locker, using a single
// fixed lock key shared by every process reconciling against the same
// catalog.
func NewActivatorLock(locker *Locker) *ActivatorLock {
	return &ActivatorLock{
		locker: locker,
		key:    locker.NewLockKeys("reconciliation")[0],
	}
}

// Lock attempts to acquire the reconciliation lock for duration, reporting
// false without error if another process already holds it.
func (a *ActivatorLock) Lock(ctx context.Context, duration time.Duration) (bool, error) {
	return a.locker.Lock(ctx, duration, a.key)
}

// Unlock releases the reconciliation lock if this process holds it.
func (a *ActivatorLock) Unlock(ctx context.Context) error {
	return a.locker.Unlock(ctx, a.key)
}
