package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// IntakeUseCase turns a confirmed sale into fulfillment records, one per
// line item. Safe to replay: the sale/line-item pair is unique in storage.
type IntakeUseCase struct {
	routing      *RoutingUseCase
	fulfillments repository.FulfillmentRepository
	audit        repository.AuditRepository
	logger       *slog.Logger
}

// NewIntakeUseCase constructs IntakeUseCase.
func NewIntakeUseCase(
	routing *RoutingUseCase,
	fulfillments repository.FulfillmentRepository,
	audit repository.AuditRepository,
	logger *slog.Logger,
) *IntakeUseCase {
	return &IntakeUseCase{routing: routing, fulfillments: fulfillments, audit: audit, logger: logger}
}

// Ingest routes every line item and persists the resulting records.
func (u *IntakeUseCase) Ingest(ctx context.Context, sale model.Sale) ([]model.IntakeResult, error) {
	decisions, err := u.routing.Route(ctx, sale)
	if err != nil {
		return nil, fmt.Errorf("route sale %s: %w", sale.SaleID, err)
	}

	results := make([]model.IntakeResult, 0, len(decisions))
	for i, decision := range decisions {
		item := sale.LineItems[i]

		params := repository.CreateFulfillmentParams{
			SaleID:     sale.SaleID,
			LineItemID: item.LineItemID,
			SKU:        item.SKU,
			Quantity:   item.Quantity,
			Supplier:   decision.Supplier,
			SalePrice:  item.Price,
			Recipient:  sale.Recipient,
		}
		if decision.Supplier == model.SupplierFallback {
			params.Fallback = &model.FallbackInfo{
				Provider: model.SupplierFallback,
				Reason:   decision.Reason,
				At:       time.Now(),
			}
		}

		order, created, err := u.fulfillments.Create(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("create fulfillment for sale %s item %s: %w", sale.SaleID, item.LineItemID, err)
		}
		if created {
			detail := fmt.Sprintf("routed to %s (%s)", decision.Supplier, decision.Mode)
			if decision.Reason != "" {
				detail += ": " + decision.Reason
			}
			if err := u.audit.Append(ctx, order.ID, model.AuditCreated, detail); err != nil {
				u.logger.Warn("audit append failed", "order_id", order.ID, "error", err)
			}
		}
		results = append(results, model.IntakeResult{Decision: decision, Order: order, Created: created})
	}

	return results, nil
}
