package repository

import (
	"context"

	"github.com/avolkhin/shipstream/internal/domain/model"
)

// VariantMappingRepository provides read access to supplier variant mappings.
// The fulfillment core never writes them.
type VariantMappingRepository interface {
	GetBySKU(ctx context.Context, sku string) (*model.VariantMapping, error)
}
