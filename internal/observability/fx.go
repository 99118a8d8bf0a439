package observability

import (
	"github.com/railzwaylabs/modelrail/internal/config"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Provide(NewTracerProvider),
	fx.Invoke(watchConfig),
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)

func watchConfig(log *zap.Logger) {
	named := log.Named("config")
	config.OnChange(func(name string) {
		named.Info("config file changed; restart to apply", zap.String("file", name))
	})
}
