package usecase

import (
	"context"
	"errors"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// RoutingUseCase decides how each line item of a confirmed sale should be
// fulfilled. The decision itself is pure; persistence belongs to the caller.
type RoutingUseCase struct {
	mappings repository.VariantMappingRepository
}

// NewRoutingUseCase constructs RoutingUseCase.
func NewRoutingUseCase(mappings repository.VariantMappingRepository) *RoutingUseCase {
	return &RoutingUseCase{mappings: mappings}
}

// Route produces one decision per line item.
func (u *RoutingUseCase) Route(ctx context.Context, sale model.Sale) ([]model.RoutingDecision, error) {
	decisions := make([]model.RoutingDecision, 0, len(sale.LineItems))
	for _, item := range sale.LineItems {
		var mapping *model.VariantMapping
		if item.SKU != "" {
			found, err := u.mappings.GetBySKU(ctx, item.SKU)
			if err != nil && !errors.Is(err, domainErrors.ErrNotFound) {
				return nil, err
			}
			mapping = found
		}
		decisions = append(decisions, Decide(item, mapping))
	}
	return decisions, nil
}

// Decide maps a line item and its variant mapping onto a routing decision.
//
// Priority: primary auto when the mapping is complete; fallback manual when
// the primary mapping is incomplete or the item is sourced from the fallback
// supplier; manual otherwise.
func Decide(item model.SaleLineItem, mapping *model.VariantMapping) model.RoutingDecision {
	decision := model.RoutingDecision{
		LineItemID: item.LineItemID,
		Supplier:   model.SupplierManual,
		Mode:       model.ModeManual,
	}

	if mapping == nil {
		decision.Reason = "no mapping"
		return decision
	}

	decision.Variant = mapping

	switch mapping.Source {
	case model.SupplierPrimary:
		if mapping.Complete() {
			decision.Supplier = model.SupplierPrimary
			decision.Mode = model.ModeAuto
			decision.Retryable = true
			return decision
		}
		// Primary selected but the mapping cannot drive an automatic
		// submission: hand the item to the fallback supplier instead.
		decision.Supplier = model.SupplierFallback
		decision.Retryable = true
		decision.Reason = "incomplete primary mapping"
	case model.SupplierFallback:
		decision.Supplier = model.SupplierFallback
		decision.Retryable = true
	default:
		decision.Reason = "unknown supplier source"
	}

	return decision
}
