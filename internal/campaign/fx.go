package campaign

import (
	"github.com/leadwayhq/leadway/internal/campaign/repository"
	"github.com/leadwayhq/leadway/internal/campaign/service"
	"go.uber.org/fx"
)

var Module = fx.Module("campaign.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
