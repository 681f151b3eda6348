package rbac

import (
	"github.com/leadwayhq/leadway/internal/rbac/repository"
	"github.com/leadwayhq/leadway/internal/rbac/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rbac.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
