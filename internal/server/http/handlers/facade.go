package handlers

import (
	"context"

	"github.com/avolkhin/shipstream/internal/domain/model"
)

// WebhookFacade describes intake capabilities required by the webhook handler.
type WebhookFacade interface {
	IngestSale(ctx context.Context, sale model.Sale) ([]model.IntakeResult, error)
	AttemptSubmission(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
}

// QueryFacade provides read access to fulfillment records.
type QueryFacade interface {
	Fulfillments(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)
	Fulfillment(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
	FulfillmentEvents(ctx context.Context, id int64) ([]model.AuditEvent, error)
	Summary(ctx context.Context) (*model.FulfillmentSummary, error)
}

// ControlFacade provides administrative actions on fulfillment records.
type ControlFacade interface {
	AttemptSubmission(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
	Approve(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
	MarkDelivered(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
	Cancel(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
	Return(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
}

// FulfillmentFacade aggregates the full set of operations used across handlers.
type FulfillmentFacade interface {
	WebhookFacade
	QueryFacade
	ControlFacade
}

// HealthChecker reports storage connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
