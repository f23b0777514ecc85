package repository

import (
	"context"
	"time"

	"github.com/avolkhin/shipstream/internal/domain/model"
)

// CreateFulfillmentParams captures everything persisted when a routed line
// item becomes a fulfillment record.
type CreateFulfillmentParams struct {
	SaleID     string
	LineItemID string
	SKU        string
	Quantity   int
	Supplier   model.Supplier
	SalePrice  float64
	Recipient  model.Recipient

	// Fallback is non-nil for records routed directly to the fallback
	// supplier, so the fallback worker's provider filter admits them.
	Fallback *model.FallbackInfo
}

// FulfillmentRepository describes persistence operations for fulfillment
// records. Every mutating operation is a single conditional statement so the
// guards hold under concurrent workers.
type FulfillmentRepository interface {
	// Create inserts one record per sale/line-item pair. Replayed webhooks hit
	// the existing row; the bool reports whether the record is new.
	Create(ctx context.Context, params CreateFulfillmentParams) (*model.FulfillmentOrder, bool, error)
	GetByID(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
	List(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)

	// CandidatesForRetry returns primary records still awaiting a supplier
	// order: status pending/failed, no supplier order id, not escalated.
	CandidatesForRetry(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)
	// PendingFallback returns fallback records with fallback info present.
	PendingFallback(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)
	// Trackable returns non-terminal records carrying a tracking number.
	Trackable(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)

	// CommitSubmission records supplier acceptance: order id, costs, profit,
	// status ordered. Fails with ErrAlreadySubmitted if an id already exists.
	CommitSubmission(ctx context.Context, id int64, supplierOrderID string, supplierCost, shippingCost, profit float64) error
	// RecordFailure moves the record to failed and advances the retry state.
	RecordFailure(ctx context.Context, id int64, message string) error
	// RecordProfitBlock moves the record to failed with the negative profit
	// and the NEGATIVE_PROFIT block reason. No supplier order id is stored.
	RecordProfitBlock(ctx context.Context, id int64, supplierCost, shippingCost, profit float64) error

	// Escalate switches the record to the fallback supplier in place, exactly
	// once. Fails with ErrAlreadyEscalated on a repeat attempt.
	Escalate(ctx context.Context, id int64, info model.FallbackInfo) error

	// Transition applies from -> to only when the row still holds from.
	Transition(ctx context.Context, id int64, from, to model.Status) error
	// MarkShipped transitions ordered -> shipped and stores the tracking ref.
	MarkShipped(ctx context.Context, id int64, trackingNumber, carrier string) error
	// SetStorefrontFulfillment stores the notify-once flag; false means
	// another tick already sent the storefront fulfillment.
	SetStorefrontFulfillment(ctx context.Context, id int64, fulfillmentID string) (bool, error)

	// AcquireLock claims the record until now+ttl via compare-and-swap; an
	// unexpired lock held elsewhere yields ErrLockHeld.
	AcquireLock(ctx context.Context, id int64, ttl time.Duration) error
	ReleaseLock(ctx context.Context, id int64) error

	// Summary aggregates record counts and profit, computed fresh per call.
	Summary(ctx context.Context) (*model.FulfillmentSummary, error)
}
