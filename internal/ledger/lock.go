package ledger

import (
	"context"
	"database/sql"
	"fmt"
)

// Advisory lock keys. One key per job family; any process sharing the
// store competes on the same keys.
const (
	LockKeyDueUploads   = 10101
	LockKeyRefreshViews = 10103
)

// AdvisoryLock is a store-held advisory lock pinned to one connection.
// Postgres advisory locks are session-scoped, so acquire and release
// must happen on the same connection; holding the *sql.Conn guarantees
// that across a pooled handle.
type AdvisoryLock struct {
	conn *sql.Conn
	key  int64
}

// TryLock attempts a non-blocking advisory lock. ok=false means
// another worker already holds it and the caller should return quietly.
func (l *Ledger) TryLock(ctx context.Context, key int64) (*AdvisoryLock, bool, error) {
	sqlDB, err := l.db.DB()
	if err != nil {
		return nil, false, fmt.Errorf("advisory lock %d: %w", key, err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("advisory lock %d: %w", key, err)
	}

	var got bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&got); err != nil {
		_ = conn.Close()
		return nil, false, fmt.Errorf("advisory lock %d: %w", key, err)
	}
	if !got {
		_ = conn.Close()
		return nil, false, nil
	}
	return &AdvisoryLock{conn: conn, key: key}, true, nil
}

// Release unlocks and returns the connection to the pool. Safe to call
// on every exit path.
func (a *AdvisoryLock) Release(ctx context.Context) error {
	if a == nil || a.conn == nil {
		return nil
	}
	defer func() {
		_ = a.conn.Close()
		a.conn = nil
	}()
	var released bool
	if err := a.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", a.key).Scan(&released); err != nil {
		return fmt.Errorf("advisory unlock %d: %w", a.key, err)
	}
	return nil
}
