package billing

import (
	"github.com/leadwayhq/leadway/internal/billing/repository"
	"github.com/leadwayhq/leadway/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
