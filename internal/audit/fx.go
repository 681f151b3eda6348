package audit

import (
	"github.com/leadwayhq/leadway/internal/audit/repository"
	"github.com/leadwayhq/leadway/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
