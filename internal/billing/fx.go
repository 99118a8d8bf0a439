package billing

import (
	"github.com/railzwaylabs/modelrail/internal/billing/gateway"
	"github.com/railzwaylabs/modelrail/internal/billing/repository"
	"github.com/railzwaylabs/modelrail/internal/billing/service"
	"github.com/railzwaylabs/modelrail/internal/billing/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(repository.Provide),
	fx.Provide(gateway.NewGateway),
	fx.Provide(service.NewCheckoutService),
	fx.Provide(service.NewSettingsService),
	fx.Provide(webhook.NewService),
)
