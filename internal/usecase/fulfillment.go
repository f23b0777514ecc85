package usecase

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// FulfillmentUseCase serves queries and administrative actions on
// fulfillment records. Administrative transitions run through the same
// state machine as the workers; a guard violation is reported, never
// silently absorbed.
type FulfillmentUseCase struct {
	fulfillments repository.FulfillmentRepository
	audit        repository.AuditRepository
	logger       *slog.Logger
}

// NewFulfillmentUseCase constructs FulfillmentUseCase.
func NewFulfillmentUseCase(
	fulfillments repository.FulfillmentRepository,
	audit repository.AuditRepository,
	logger *slog.Logger,
) *FulfillmentUseCase {
	return &FulfillmentUseCase{fulfillments: fulfillments, audit: audit, logger: logger}
}

// List returns the newest fulfillment records.
func (u *FulfillmentUseCase) List(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return u.fulfillments.List(ctx, limit)
}

// Get returns one record by id.
func (u *FulfillmentUseCase) Get(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return u.fulfillments.GetByID(ctx, id)
}

// Events returns the audit trail for one record, newest first.
func (u *FulfillmentUseCase) Events(ctx context.Context, id int64) ([]model.AuditEvent, error) {
	if _, err := u.fulfillments.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return u.audit.ListByOrder(ctx, id)
}

// Summary aggregates counts and profit across all records.
func (u *FulfillmentUseCase) Summary(ctx context.Context) (*model.FulfillmentSummary, error) {
	return u.fulfillments.Summary(ctx)
}

// Approve acknowledges a manually handled record as ordered.
func (u *FulfillmentUseCase) Approve(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return u.advance(ctx, id, model.StatusOrdered, "approved")
}

// MarkDelivered closes out a record whose shipment arrived.
func (u *FulfillmentUseCase) MarkDelivered(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return u.advance(ctx, id, model.StatusDelivered, "marked delivered")
}

func (u *FulfillmentUseCase) advance(ctx context.Context, id int64, to model.Status, action string) (*model.FulfillmentOrder, error) {
	order, err := u.fulfillments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, order.Status, to)
	}
	if err := u.fulfillments.Transition(ctx, id, order.Status, to); err != nil {
		return nil, err
	}
	u.appendAudit(ctx, id, fmt.Sprintf("%s (%s -> %s)", action, order.Status, to))
	return u.fulfillments.GetByID(ctx, id)
}

// Cancel moves a non-terminal record to cancelled.
func (u *FulfillmentUseCase) Cancel(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return u.sink(ctx, id, model.StatusCancelled, "cancelled")
}

// Return moves a non-terminal record to returned.
func (u *FulfillmentUseCase) Return(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return u.sink(ctx, id, model.StatusReturned, "returned")
}

func (u *FulfillmentUseCase) sink(ctx context.Context, id int64, to model.Status, action string) (*model.FulfillmentOrder, error) {
	order, err := u.fulfillments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanCancelTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", domainErrors.ErrInvalidTransition, order.Status, to)
	}
	if err := u.fulfillments.Transition(ctx, id, order.Status, to); err != nil {
		return nil, err
	}
	u.appendAudit(ctx, id, fmt.Sprintf("%s (was %s)", action, order.Status))
	return u.fulfillments.GetByID(ctx, id)
}

func (u *FulfillmentUseCase) appendAudit(ctx context.Context, id int64, detail string) {
	if err := u.audit.Append(ctx, id, model.AuditAdminAction, detail); err != nil {
		u.logger.Warn("audit append failed", "order_id", id, "error", err)
	}
}
