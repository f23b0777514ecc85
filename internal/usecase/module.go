package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/avolkhin/shipstream/internal/adapter/storefront"
	"github.com/avolkhin/shipstream/internal/adapter/supplier"
	"github.com/avolkhin/shipstream/internal/config"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewRoutingUseCase,
	NewIntakeUseCase,
	NewFulfillmentUseCase,
	func(
		fulfillments repository.FulfillmentRepository,
		supplierClient supplier.Client,
		storefrontClient storefront.Client,
		audit repository.AuditRepository,
		logger *slog.Logger,
		cfg *config.Config,
	) *TrackingUseCase {
		return NewTrackingUseCase(fulfillments, supplierClient, storefrontClient, audit, logger, cfg.LockTTL)
	},
	func(
		fulfillments repository.FulfillmentRepository,
		mappings repository.VariantMappingRepository,
		supplierClient supplier.Client,
		audit repository.AuditRepository,
		logger *slog.Logger,
		cfg *config.Config,
	) *SubmissionUseCase {
		return NewSubmissionUseCase(fulfillments, mappings, supplierClient, audit, logger, cfg.LockTTL)
	},
	func(
		fulfillments repository.FulfillmentRepository,
		audit repository.AuditRepository,
		logger *slog.Logger,
		cfg *config.Config,
	) *FallbackUseCase {
		return NewFallbackUseCase(fulfillments, audit, logger, cfg.LockTTL)
	},
)
