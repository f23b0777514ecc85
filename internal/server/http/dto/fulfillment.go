package dto

import "time"

// FulfillmentResponse is the API view of a fulfillment record. The retry,
// fallback, and capability fields are derived at read time, never stored.
type FulfillmentResponse struct {
	ID         int64  `json:"id"`
	SaleID     string `json:"sale_id"`
	LineItemID string `json:"line_item_id"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`

	Supplier string `json:"supplier"`
	Status   string `json:"status"`

	SupplierOrderID *string `json:"supplier_order_id,omitempty"`
	TrackingNumber  *string `json:"tracking_number,omitempty"`
	Carrier         *string `json:"carrier,omitempty"`

	SalePrice    float64  `json:"sale_price"`
	SupplierCost *float64 `json:"supplier_cost,omitempty"`
	ShippingCost *float64 `json:"shipping_cost,omitempty"`
	Profit       *float64 `json:"profit,omitempty"`

	RetryCount     int        `json:"retry_count"`
	LastRetryError string     `json:"last_retry_error,omitempty"`
	LastRetryAt    *time.Time `json:"last_retry_at,omitempty"`
	BlockedReason  *string    `json:"blocked_reason,omitempty"`

	IsFallback     bool    `json:"is_fallback"`
	FallbackFrom   string  `json:"fallback_from,omitempty"`
	FallbackReason string  `json:"fallback_reason,omitempty"`
	CanRetry       bool    `json:"can_retry"`
	StorefrontID   *string `json:"storefront_fulfillment_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditEventResponse is one audit trail entry.
type AuditEventResponse struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SummaryResponse aggregates record counts and profit.
type SummaryResponse struct {
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	TotalProfit float64          `json:"total_profit"`
}

// ErrorResponse carries a machine-readable failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
