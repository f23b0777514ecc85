package model

import "time"

// Supplier identifies who ships a fulfillment order.
type Supplier string

const (
	SupplierPrimary  Supplier = "primary"
	SupplierFallback Supplier = "fallback"
	SupplierManual   Supplier = "manual"
)

// Status describes the fulfillment lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOrdered   Status = "ordered"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusReturned  Status = "returned"
)

// IsTerminal reports whether no worker may mutate the record any further.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled || s == StatusReturned
}

// CanTransitionTo reports whether the automatic state machine permits s -> to.
func (s Status) CanTransitionTo(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusOrdered || to == StatusFailed
	case StatusFailed:
		return to == StatusOrdered
	case StatusOrdered:
		return to == StatusShipped || to == StatusDelivered
	case StatusShipped:
		return to == StatusDelivered
	default:
		return false
	}
}

// CanCancelTo reports whether an administrative sink transition is permitted.
// Cancelled and returned are reachable from any non-terminal state.
func (s Status) CanCancelTo(to Status) bool {
	if to != StatusCancelled && to != StatusReturned {
		return false
	}
	return !s.IsTerminal()
}

// BlockReason marks a record that must not be re-submitted to the same supplier.
type BlockReason string

const (
	// BlockNegativeProfit means the supplier quote exceeded the captured sale price.
	BlockNegativeProfit BlockReason = "NEGATIVE_PROFIT"
)

// RetryState accumulates submission failures for a record.
type RetryState struct {
	Count     int
	LastError string
	LastAt    *time.Time
}

// FallbackInfo is written exactly once when a record reaches the fallback
// supplier, either by escalation (From = primary) or by direct routing.
type FallbackInfo struct {
	Provider Supplier
	From     Supplier
	Reason   string
	At       time.Time
}

// Recipient is the shipping snapshot captured from the storefront order.
type Recipient struct {
	Name     string
	Address1 string
	Address2 string
	City     string
	Province string
	Country  string
	Zip      string
	Phone    string
}

// FulfillmentOrder is the per-line-item fulfillment attempt record.
type FulfillmentOrder struct {
	ID         int64
	SaleID     string
	LineItemID string
	SKU        string
	Quantity   int

	Supplier Supplier
	Status   Status

	// SupplierOrderID is set at most once and never cleared; its presence
	// permanently forecloses re-submission.
	SupplierOrderID *string
	TrackingNumber  *string
	Carrier         *string

	// StorefrontFulfillmentID is the persisted notify-once flag for the
	// storefront fulfillment entry.
	StorefrontFulfillmentID *string

	// SalePrice is captured at creation and never recomputed.
	SalePrice    float64
	SupplierCost *float64
	ShippingCost *float64
	Profit       *float64

	Retry       RetryState
	BlockReason *BlockReason
	Fallback    *FallbackInfo
	LockedUntil *time.Time

	Recipient Recipient

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Escalated reports whether the record has been handed to the fallback supplier.
func (o *FulfillmentOrder) Escalated() bool {
	return o.Fallback != nil && o.Fallback.Provider != ""
}

// Submitted reports whether the primary supplier already accepted this order.
func (o *FulfillmentOrder) Submitted() bool {
	return o.SupplierOrderID != nil && *o.SupplierOrderID != ""
}

// Locked reports whether another worker currently holds the record.
func (o *FulfillmentOrder) Locked(now time.Time) bool {
	return o.LockedUntil != nil && o.LockedUntil.After(now)
}

// CanRetry reports whether a submission attempt could still change the record.
func (o *FulfillmentOrder) CanRetry() bool {
	if o.Status.IsTerminal() || o.Submitted() {
		return false
	}
	if o.Supplier != SupplierPrimary {
		return false
	}
	return o.Status == StatusPending || o.Status == StatusFailed
}
