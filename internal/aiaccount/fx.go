package aiaccount

import (
	"github.com/railzwaylabs/modelrail/internal/aiaccount/credential"
	"github.com/railzwaylabs/modelrail/internal/aiaccount/probe"
	"github.com/railzwaylabs/modelrail/internal/aiaccount/repository"
	"github.com/railzwaylabs/modelrail/internal/aiaccount/service"
	"go.uber.org/fx"
)

var Module = fx.Module("aiaccount",
	fx.Provide(repository.Provide),
	fx.Provide(credential.NewStore),
	fx.Provide(probe.NewProber),
	fx.Provide(service.NewService),
)
