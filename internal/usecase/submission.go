package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avolkhin/shipstream/internal/adapter/supplier"
	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// SubmissionUseCase drives submission of primary-routed records to the
// supplier. Money-moving calls happen at most once per record: the supplier
// order id is set-once in storage and every precondition is re-checked on a
// fresh read.
type SubmissionUseCase struct {
	fulfillments repository.FulfillmentRepository
	mappings     repository.VariantMappingRepository
	supplier     supplier.Client
	audit        repository.AuditRepository
	logger       *slog.Logger
	lockTTL      time.Duration
}

// NewSubmissionUseCase constructs SubmissionUseCase.
func NewSubmissionUseCase(
	fulfillments repository.FulfillmentRepository,
	mappings repository.VariantMappingRepository,
	supplierClient supplier.Client,
	audit repository.AuditRepository,
	logger *slog.Logger,
	lockTTL time.Duration,
) *SubmissionUseCase {
	return &SubmissionUseCase{
		fulfillments: fulfillments,
		mappings:     mappings,
		supplier:     supplierClient,
		audit:        audit,
		logger:       logger,
		lockTTL:      lockTTL,
	}
}

// Candidates returns records still awaiting a supplier order.
func (u *SubmissionUseCase) Candidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return u.fulfillments.CandidatesForRetry(ctx, limit)
}

// SubmitWithLock claims the record for the lock TTL and runs Submit. A held
// lock yields ErrLockHeld without touching the record.
func (u *SubmissionUseCase) SubmitWithLock(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if err := u.fulfillments.AcquireLock(ctx, id, u.lockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := u.fulfillments.ReleaseLock(context.WithoutCancel(ctx), id); err != nil {
			u.logger.Warn("lock release failed", "order_id", id, "error", err)
		}
	}()

	return u.Submit(ctx, id)
}

// Submit attempts one supplier submission for the record.
//
// Preconditions run in order on freshly read state: terminal and non-primary
// records are no-ops, an existing supplier order id is the idempotent success
// path, escalation forbids primary submission outright. A quote that eats the
// whole sale price is persisted as a profit block and never committed.
func (u *SubmissionUseCase) Submit(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	order, err := u.fulfillments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if order.Status.IsTerminal() || order.Supplier != model.SupplierPrimary {
		return order, nil
	}
	if order.Submitted() {
		return order, nil
	}
	if order.Escalated() {
		return nil, domainErrors.ErrAlreadyEscalated
	}

	mapping, err := u.mappings.GetBySKU(ctx, order.SKU)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrMissingSupplierMapping
		}
		return nil, err
	}
	if !mapping.Complete() || mapping.Source != model.SupplierPrimary {
		return nil, domainErrors.ErrMissingSupplierMapping
	}

	result, err := u.supplier.CreateOrder(ctx, supplier.OrderRequest{
		Reference: fmt.Sprintf("%s-%s", order.SaleID, order.LineItemID),
		Recipient: order.Recipient,
		Items:     []supplier.OrderItem{{VariantID: mapping.SupplierVariantID, Quantity: order.Quantity}},
	})
	if err != nil {
		callErr := domainErrors.SupplierCallError{Op: "create order", Err: err}
		if recordErr := u.fulfillments.RecordFailure(ctx, id, callErr.Error()); recordErr != nil {
			u.logger.Error("record failure failed", "order_id", id, "error", recordErr)
		}
		u.appendAudit(ctx, id, model.AuditSubmissionFailed, callErr.Error())
		return nil, callErr
	}

	totalCost := result.ProductCost + result.ShippingCost
	profit := order.SalePrice - totalCost
	if totalCost > order.SalePrice {
		if recordErr := u.fulfillments.RecordProfitBlock(ctx, id, result.ProductCost, result.ShippingCost, profit); recordErr != nil {
			u.logger.Error("record profit block failed", "order_id", id, "error", recordErr)
		}
		u.appendAudit(ctx, id, model.AuditProfitBlocked,
			fmt.Sprintf("cost %.2f exceeds sale price %.2f", totalCost, order.SalePrice))
		return nil, domainErrors.ErrNegativeProfitBlocked
	}

	err = u.fulfillments.CommitSubmission(ctx, id, result.SupplierOrderID, result.ProductCost, result.ShippingCost, profit)
	if err != nil {
		if errors.Is(err, domainErrors.ErrAlreadySubmitted) {
			// Lost a race to a concurrent submitter; the record already
			// carries a supplier order id, which is the outcome we wanted.
			return u.fulfillments.GetByID(ctx, id)
		}
		return nil, err
	}

	u.appendAudit(ctx, id, model.AuditSubmitted,
		fmt.Sprintf("supplier order %s, profit %.2f", result.SupplierOrderID, profit))
	return u.fulfillments.GetByID(ctx, id)
}

// Escalate hands the record to the fallback supplier in place, exactly once.
func (u *SubmissionUseCase) Escalate(ctx context.Context, id int64, reason string) (*model.FulfillmentOrder, error) {
	order, err := u.fulfillments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return order, nil
	}
	if order.Escalated() {
		return nil, domainErrors.ErrAlreadyEscalated
	}

	info := model.FallbackInfo{
		Provider: model.SupplierFallback,
		From:     order.Supplier,
		Reason:   reason,
		At:       time.Now(),
	}
	if err := u.fulfillments.Escalate(ctx, id, info); err != nil {
		return nil, err
	}

	u.appendAudit(ctx, id, model.AuditEscalated, reason)
	return u.fulfillments.GetByID(ctx, id)
}

func (u *SubmissionUseCase) appendAudit(ctx context.Context, id int64, event, detail string) {
	if err := u.audit.Append(ctx, id, event, detail); err != nil {
		u.logger.Warn("audit append failed", "order_id", id, "event", event, "error", err)
	}
}
