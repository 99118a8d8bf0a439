package migration

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		dialect := conn.Dialector.Name()
		if err := RunMigrations(sqlDB, dialect); err != nil {
			return err
		}
		log.Named("migration").Info("schema migrated", zap.String("dialect", dialect))
		return nil
	}),
)
