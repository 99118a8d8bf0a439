package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const advisoryLockKey int64 = 7_301_442_118

type unlockFunc func(ctx context.Context) error

// acquireAdvisoryLock serializes concurrent migrators on postgres. SQLite
// takes a file lock per write transaction, so it gets a no-op.
func acquireAdvisoryLock(ctx context.Context, db *sql.DB, dialect string) (unlockFunc, error) {
	if dialect != DialectPostgres {
		return func(context.Context) error { return nil }, nil
	}

	var locked bool
	err := db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked)
	if err != nil {
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !locked {
		return nil, errors.New("another migration is in progress")
	}

	return func(ctx context.Context) error {
		_, err := db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockKey)
		return err
	}, nil
}
