package customer

import (
	"github.com/leadwayhq/leadway/internal/customer/repository"
	"github.com/leadwayhq/leadway/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
