package auth

import (
	"github.com/leadwayhq/leadway/internal/auth/repository"
	"github.com/leadwayhq/leadway/internal/auth/service"
	"github.com/leadwayhq/leadway/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
