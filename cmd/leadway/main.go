package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/leadwayhq/leadway/internal/audit"
	"github.com/leadwayhq/leadway/internal/auth"
	"github.com/leadwayhq/leadway/internal/authorization"
	"github.com/leadwayhq/leadway/internal/billing"
	"github.com/leadwayhq/leadway/internal/campaign"
	"github.com/leadwayhq/leadway/internal/clock"
	"github.com/leadwayhq/leadway/internal/config"
	"github.com/leadwayhq/leadway/internal/customer"
	"github.com/leadwayhq/leadway/internal/lead"
	"github.com/leadwayhq/leadway/internal/migration"
	"github.com/leadwayhq/leadway/internal/observability"
	"github.com/leadwayhq/leadway/internal/providers"
	"github.com/leadwayhq/leadway/internal/ratelimit"
	"github.com/leadwayhq/leadway/internal/rbac"
	"github.com/leadwayhq/leadway/internal/server"
	"github.com/leadwayhq/leadway/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,

		auth.Module,
		rbac.Module,
		authorization.Module,
		audit.Module,
		billing.Module,
		providers.Module,
		customer.Module,
		lead.Module,
		campaign.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
