package checkout

import (
	"go.uber.org/fx"

	billingdomain "github.com/leadwayhq/leadway/internal/billing/domain"
)

var Module = fx.Module("providers.checkout",
	fx.Provide(NewClient),
	fx.Provide(func(c *Client) billingdomain.ProviderClient { return c }),
)
