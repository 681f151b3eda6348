// Package providers aggregates outbound integration clients.
package providers

import (
	"go.uber.org/fx"

	"github.com/leadwayhq/leadway/internal/providers/checkout"
)

var Module = fx.Module("providers",
	checkout.Module,
)
