package authorization

import (
	rbacdomain "github.com/leadwayhq/leadway/internal/rbac/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("authorization.service",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
	fx.Provide(func(s *ServiceImpl) Service { return s }),
	fx.Provide(fx.Annotate(
		func(s *ServiceImpl) rbacdomain.ChangeListener { return s },
		fx.ResultTags(`group:"rbac.listeners"`),
	)),
)
