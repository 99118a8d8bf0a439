package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	StatusActive = "active"

	schemaStateID = 1
)

func activateSchemaState(ctx context.Context, db *sql.DB, dialect, schemaVersion, checksum string) error {
	version := strings.TrimSpace(schemaVersion)
	if version == "" {
		return errors.New("schema version is required for state activation")
	}

	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, bind(dialect, `
		INSERT INTO schema_state (id, status, schema_version, checksum, activated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    schema_version = EXCLUDED.schema_version,
		    checksum = EXCLUDED.checksum,
		    activated_at = EXCLUDED.activated_at
	`), schemaStateID, StatusActive, version, nullIfEmpty(checksum), now, now)
	if err != nil {
		return fmt.Errorf("activate schema state: %w", err)
	}
	return nil
}

func nullIfEmpty(value string) any {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}
