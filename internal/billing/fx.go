package billing

import (
	"github.com/workfolio/workfolio/internal/billing/chain"
	"github.com/workfolio/workfolio/internal/billing/commerce"
	billingdomain "github.com/workfolio/workfolio/internal/billing/domain"
	"github.com/workfolio/workfolio/internal/billing/repository"
	"github.com/workfolio/workfolio/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(c *commerce.Client) billingdomain.ChargeFetcher { return c }),
	fx.Provide(commerce.NewClient),
	fx.Provide(chain.NewSignerClient),
	fx.Provide(service.NewService),
)
