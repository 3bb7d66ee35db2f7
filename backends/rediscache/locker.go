package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/distsql/nodectl"
)

// LockKey is one key a caller wants to hold a distributed lock on.
type LockKey struct {
	Key         string
	LockID      nodectl.UUID
	IsLockOwner bool
}

// Locker provides distributed mutual exclusion for an Activator
// reconciliation pass in a deployment where more than one node process
// shares one Metadata Store/Page Store, so only one process boots a given
// tablespace at a time.
type Locker struct {
	conn *Connection
}

// NewLocker returns a Locker backed by the given connection.
func NewLocker(conn *Connection) *Locker {
	return &Locker{conn: conn}
}

func formatLockKey(k string) string {
	return fmt.Sprintf("L%s", k)
}

// NewLockKeys builds a set of lock keys ready to pass to Lock.
func (l *Locker) NewLockKeys(keys ...string) []*LockKey {
	out := make([]*LockKey, len(keys))
	for i, k := range keys {
		out[i] = &LockKey{Key: formatLockKey(k), LockID: nodectl.NewUUID()}
	}
	return out
}

// Lock attempts to acquire every key in lockKeys, each held for duration.
// It reports false (without error) if any key is already held by another
// owner.
func (l *Locker) Lock(ctx context.Context, duration time.Duration, lockKeys ...*LockKey) (bool, error) {
	for _, lk := range lockKeys {
		current, err := l.conn.Client.Get(ctx, lk.Key).Result()
		if err != nil && err != redis.Nil {
			return false, err
		}
		if err == redis.Nil {
			if err := l.conn.Client.Set(ctx, lk.Key, lk.LockID.String(), duration).Err(); err != nil {
				return false, err
			}
			got, err := l.conn.Client.Get(ctx, lk.Key).Result()
			if err != nil {
				return false, err
			}
			if got != lk.LockID.String() {
				return false, nil
			}
			lk.IsLockOwner = true
			continue
		}
		if current != lk.LockID.String() {
			return false, nil
		}
	}
	return true, nil
}

// Unlock releases every key this caller owns in lockKeys.
func (l *Locker) Unlock(ctx context.Context, lockKeys ...*LockKey) error {
	var lastErr error
	for _, lk := range lockKeys {
		if !lk.IsLockOwner {
			continue
		}
		if err := l.conn.Client.Del(ctx, lk.Key).Err(); err != nil {
			lastErr = err
		} else {
			lk.IsLockOwner = false
		}
	}
	return lastErr
}

// IsLocked reports whether every key in lockKeys is currently held by
// anyone (not necessarily the caller).
func (l *Locker) IsLocked(ctx context.Context, lockKeys ...*LockKey) (bool, error) {
	for _, lk := range lockKeys {
		_, err := l.conn.Client.Get(ctx, lk.Key).Result()
		if err == redis.Nil {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return true, nil
}
