package lead

import (
	"github.com/leadwayhq/leadway/internal/lead/repository"
	"github.com/leadwayhq/leadway/internal/lead/service"
	"go.uber.org/fx"
)

var Module = fx.Module("lead.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
