package di

import (
	"go.uber.org/fx"

	"github.com/avolkhin/shipstream/internal/adapter/storefront"
	"github.com/avolkhin/shipstream/internal/adapter/supplier"
	"github.com/avolkhin/shipstream/internal/app"
	"github.com/avolkhin/shipstream/internal/config"
	"github.com/avolkhin/shipstream/internal/logger"
	"github.com/avolkhin/shipstream/internal/pkg/signature"
	"github.com/avolkhin/shipstream/internal/server/http/handlers"
	"github.com/avolkhin/shipstream/internal/server/http/router"
	"github.com/avolkhin/shipstream/internal/storage/postgres"
	"github.com/avolkhin/shipstream/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		signature.Module,
		postgres.Module,
		supplier.Module,
		storefront.Module,
		usecase.Module,
		fx.Provide(
			func(facade *app.FulfillmentFacade) handlers.FulfillmentFacade { return facade },
			func(storage *postgres.Storage) handlers.HealthChecker { return storage },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
