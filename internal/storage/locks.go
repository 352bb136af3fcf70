package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrLockNotHeld indicates a release for an advisory lock this instance
// never acquired.
var ErrLockNotHeld = errors.New("advisory lock not held")

// TryAcquireAdvisoryLock attempts a non-blocking session advisory lock.
// Used to keep re-verification cycles exclusive across instances.
//
// Session locks belong to the connection that took them, so the lock is
// acquired on a dedicated connection checked out of the pool and that
// connection stays pinned until ReleaseAdvisoryLock. Unlocking through the
// pool could land on a different session, which returns false with only a
// server-side warning and leaves the lock held by an idle connection.
func (db *DB) TryAcquireAdvisoryLock(ctx context.Context, lockID int64) (bool, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock connection: %w", err)
	}

	var acquired bool

	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired); err != nil {
		conn.Release()

		return false, fmt.Errorf("try acquire advisory lock: %w", err)
	}

	if !acquired {
		conn.Release()

		return false, nil
	}

	db.lockMu.Lock()
	db.lockConns[lockID] = conn
	db.lockMu.Unlock()

	return true, nil
}

// ReleaseAdvisoryLock releases a previously acquired advisory lock on the
// connection that holds it and returns that connection to the pool.
func (db *DB) ReleaseAdvisoryLock(ctx context.Context, lockID int64) error {
	db.lockMu.Lock()
	conn, ok := db.lockConns[lockID]
	delete(db.lockConns, lockID)
	db.lockMu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrLockNotHeld, lockID)
	}

	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
		return fmt.Errorf("release advisory lock: %w", err)
	}

	return nil
}
