package model

// VariantMapping links a storefront SKU to a supplier product/variant pair.
// The fulfillment core only reads these rows; product import maintains them.
type VariantMapping struct {
	ID                int64
	SKU               string
	Source            Supplier
	SupplierProductID string
	SupplierVariantID string
	Deleted           bool
}

// Complete reports whether the mapping carries both references required for
// automatic primary submission.
func (m *VariantMapping) Complete() bool {
	return m.SupplierProductID != "" && m.SupplierVariantID != ""
}
