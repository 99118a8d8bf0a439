package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/railzwaylabs/modelrail/internal/migration"
	"gorm.io/gorm"
)

var (
	ErrSchemaStateInactive    = errors.New("schema state is not active")
	ErrSchemaVersionMismatch  = errors.New("schema version mismatch")
	ErrSchemaChecksumMismatch = errors.New("schema checksum mismatch")
)

// SchemaGate refuses to serve traffic against a schema other than the one
// embedded in this binary.
type SchemaGate interface {
	MustBeActive(ctx context.Context) error
}

type schemaGate struct {
	db               *gorm.DB
	expectedVersion  string
	expectedChecksum string
}

func NewSchemaGate(db *gorm.DB) (SchemaGate, error) {
	if db == nil {
		return nil, errors.New("schema gate requires database handle")
	}
	dialect := db.Dialector.Name()

	latest, err := migration.LatestMigrationVersion(dialect)
	if err != nil {
		return nil, err
	}
	checksum, err := migration.MigrationsChecksum(dialect)
	if err != nil {
		return nil, err
	}

	return &schemaGate{
		db:               db,
		expectedVersion:  strconv.FormatUint(uint64(latest), 10),
		expectedChecksum: checksum,
	}, nil
}

func (g *schemaGate) MustBeActive(ctx context.Context) error {
	state, err := loadSchemaState(ctx, g.db)
	if err != nil {
		return err
	}
	if state.Status != migration.StatusActive {
		return fmt.Errorf("%w: status=%s", ErrSchemaStateInactive, state.Status)
	}
	if state.SchemaVersion != g.expectedVersion {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaVersionMismatch, state.SchemaVersion, g.expectedVersion)
	}
	if state.Checksum != nil && *state.Checksum != "" && *state.Checksum != g.expectedChecksum {
		return fmt.Errorf("%w: state=%s expected=%s", ErrSchemaChecksumMismatch, *state.Checksum, g.expectedChecksum)
	}
	return nil
}
