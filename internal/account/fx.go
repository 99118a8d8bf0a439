package account

import (
	"github.com/railzwaylabs/modelrail/internal/account/repository"
	"github.com/railzwaylabs/modelrail/internal/account/service"
	"go.uber.org/fx"
)

var Module = fx.Module("account",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
