package bootstrap

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// EnforceSchemaGate aborts startup when the database schema does not match
// the embedded migrations.
func EnforceSchemaGate(lc fx.Lifecycle, gate SchemaGate, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := gate.MustBeActive(ctx); err != nil {
				log.Named("bootstrap").Error("schema gate rejected startup", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
