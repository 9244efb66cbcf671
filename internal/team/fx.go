package team

import (
	"github.com/workfolio/workfolio/internal/team/repository"
	"github.com/workfolio/workfolio/internal/team/service"
	"go.uber.org/fx"
)

var Module = fx.Module("team.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
