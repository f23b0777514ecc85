package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/avolkhin/shipstream/internal/adapter/storefront"
	"github.com/avolkhin/shipstream/internal/adapter/supplier"
	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// TrackingUseCase reconciles shipment progress from the supplier and pushes
// fulfillment notifications to the storefront exactly once per record.
type TrackingUseCase struct {
	fulfillments repository.FulfillmentRepository
	supplier     supplier.Client
	storefront   storefront.Client
	audit        repository.AuditRepository
	logger       *slog.Logger
	lockTTL      time.Duration
}

// NewTrackingUseCase constructs TrackingUseCase.
func NewTrackingUseCase(
	fulfillments repository.FulfillmentRepository,
	supplierClient supplier.Client,
	storefrontClient storefront.Client,
	audit repository.AuditRepository,
	logger *slog.Logger,
	lockTTL time.Duration,
) *TrackingUseCase {
	return &TrackingUseCase{
		fulfillments: fulfillments,
		supplier:     supplierClient,
		storefront:   storefrontClient,
		audit:        audit,
		logger:       logger,
		lockTTL:      lockTTL,
	}
}

// Trackable returns records eligible for reconciliation.
func (u *TrackingUseCase) Trackable(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return u.fulfillments.Trackable(ctx, limit)
}

// Reconcile polls the supplier for one record's shipment progress, applies
// the resulting status transition and notifies the storefront when the
// shipment is confirmed on its way. The record lock keeps overlapping ticks
// from racing each other into the storefront notification.
func (u *TrackingUseCase) Reconcile(ctx context.Context, id int64) error {
	if err := u.fulfillments.AcquireLock(ctx, id, u.lockTTL); err != nil {
		return err
	}
	defer func() {
		if err := u.fulfillments.ReleaseLock(context.WithoutCancel(ctx), id); err != nil {
			u.logger.Warn("lock release failed", "order_id", id, "error", err)
		}
	}()

	order, err := u.fulfillments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status.IsTerminal() || order.TrackingNumber == nil || *order.TrackingNumber == "" {
		return nil
	}

	// Synthetic fallback references have nothing to poll; the record was
	// already moved to shipped when the reference was minted.
	if !strings.HasPrefix(*order.TrackingNumber, "FB-") {
		if err := u.pollSupplier(ctx, order); err != nil {
			return err
		}
		order, err = u.fulfillments.GetByID(ctx, id)
		if err != nil {
			return err
		}
	}

	if order.Status != model.StatusShipped && order.Status != model.StatusDelivered {
		return nil
	}
	return u.notifyStorefront(ctx, order)
}

func (u *TrackingUseCase) pollSupplier(ctx context.Context, order *model.FulfillmentOrder) error {
	shipment, err := u.supplier.GetTracking(ctx, *order.TrackingNumber)
	if err != nil {
		if errors.Is(err, supplier.ErrShipmentNotFound) {
			return nil
		}
		return domainErrors.SupplierCallError{Op: "get tracking", Err: err}
	}

	latest := shipment.Latest()
	if latest == nil {
		return nil
	}
	next, ok := model.StatusFromTrackingText(latest.Status)
	if !ok || next == order.Status {
		return nil
	}
	if !order.Status.CanTransitionTo(next) {
		u.logger.Warn("tracking status ignored",
			"order_id", order.ID, "from", order.Status, "to", next)
		return nil
	}

	if err := u.fulfillments.Transition(ctx, order.ID, order.Status, next); err != nil {
		if errors.Is(err, domainErrors.ErrInvalidTransition) {
			// Another worker moved the record first.
			return nil
		}
		return err
	}
	u.appendAudit(ctx, order.ID, model.AuditTrackingUpdate,
		fmt.Sprintf("%s -> %s (%s)", order.Status, next, latest.Status))
	return nil
}

// notifyStorefront creates the storefront fulfillment entry at most once.
// The persisted storefront fulfillment id is the sent flag.
func (u *TrackingUseCase) notifyStorefront(ctx context.Context, order *model.FulfillmentOrder) error {
	if order.StorefrontFulfillmentID != nil && *order.StorefrontFulfillmentID != "" {
		return nil
	}

	req := storefront.FulfillmentRequest{
		SaleID:         order.SaleID,
		LineItemID:     order.LineItemID,
		TrackingNumber: *order.TrackingNumber,
	}
	if order.Carrier != nil {
		req.Carrier = *order.Carrier
	}

	created, err := u.storefront.CreateFulfillment(ctx, req)
	if err != nil {
		return domainErrors.SupplierCallError{Op: "storefront fulfillment", Err: err}
	}

	set, err := u.fulfillments.SetStorefrontFulfillment(ctx, order.ID, created.ID)
	if err != nil {
		return err
	}
	if !set {
		u.logger.Warn("storefront fulfillment already recorded",
			"order_id", order.ID, "fulfillment_id", created.ID)
		return nil
	}
	u.appendAudit(ctx, order.ID, model.AuditStorefrontNotify,
		fmt.Sprintf("storefront fulfillment %s", created.ID))
	return nil
}

func (u *TrackingUseCase) appendAudit(ctx context.Context, id int64, event, detail string) {
	if err := u.audit.Append(ctx, id, event, detail); err != nil {
		u.logger.Warn("audit append failed", "order_id", id, "event", event, "error", err)
	}
}
