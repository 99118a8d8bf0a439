package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const siteSettingsID = 1

// seedSystemData inserts rows every installation needs exactly once.
func seedSystemData(ctx context.Context, db *sql.DB, dialect string) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin system seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, bind(dialect, `
		INSERT INTO site_settings (id, stripe_publishable_key, stripe_test_mode, updated_at)
		VALUES (?, '', TRUE, ?)
		ON CONFLICT (id) DO NOTHING
	`), siteSettingsID, time.Now().UTC()); err != nil {
		return fmt.Errorf("seed site settings: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit system seed transaction: %w", err)
	}
	return nil
}
