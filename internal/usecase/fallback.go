package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// fallbackCarrier names the carrier recorded for fallback shipments. The
// fallback supplier ships without exposing a carrier of its own.
const fallbackCarrier = "Fallback Logistics"

// FallbackUseCase advances records owned by the fallback supplier. The
// fallback channel has no submission API, so progress is simulated: pending
// records become ordered, ordered records ship with a synthetic tracking
// reference.
type FallbackUseCase struct {
	fulfillments repository.FulfillmentRepository
	audit        repository.AuditRepository
	logger       *slog.Logger
	lockTTL      time.Duration
}

// NewFallbackUseCase constructs FallbackUseCase.
func NewFallbackUseCase(
	fulfillments repository.FulfillmentRepository,
	audit repository.AuditRepository,
	logger *slog.Logger,
	lockTTL time.Duration,
) *FallbackUseCase {
	return &FallbackUseCase{fulfillments: fulfillments, audit: audit, logger: logger, lockTTL: lockTTL}
}

// Pending returns fallback records awaiting advancement.
func (u *FallbackUseCase) Pending(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return u.fulfillments.PendingFallback(ctx, limit)
}

// Advance walks one fallback record through the simulated lifecycle under
// the record lock: a pending record is ordered and immediately shipped with
// a synthetic tracking reference, so a single pass completes the channel's
// work for that record.
func (u *FallbackUseCase) Advance(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if err := u.fulfillments.AcquireLock(ctx, id, u.lockTTL); err != nil {
		return nil, err
	}
	defer func() {
		if err := u.fulfillments.ReleaseLock(context.WithoutCancel(ctx), id); err != nil {
			u.logger.Warn("lock release failed", "order_id", id, "error", err)
		}
	}()

	order, err := u.fulfillments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() || order.Supplier != model.SupplierFallback || !order.Escalated() {
		return order, nil
	}

	status := order.Status
	if status == model.StatusPending || status == model.StatusFailed {
		if err := u.fulfillments.Transition(ctx, id, status, model.StatusOrdered); err != nil {
			return nil, err
		}
		u.appendAudit(ctx, id, model.AuditFallbackOrdered, "fallback order placed")
		status = model.StatusOrdered
	}
	if status == model.StatusOrdered {
		tracking := syntheticTrackingNumber()
		if err := u.fulfillments.MarkShipped(ctx, id, tracking, fallbackCarrier); err != nil {
			return nil, err
		}
		u.appendAudit(ctx, id, model.AuditFallbackShipped, fmt.Sprintf("tracking %s", tracking))
	}

	return u.fulfillments.GetByID(ctx, id)
}

func (u *FallbackUseCase) appendAudit(ctx context.Context, id int64, event, detail string) {
	if err := u.audit.Append(ctx, id, event, detail); err != nil {
		u.logger.Warn("audit append failed", "order_id", id, "event", event, "error", err)
	}
}

// syntheticTrackingNumber mints a fallback tracking reference. Prefixed so
// tracking reconciliation can tell it apart from real supplier references.
func syntheticTrackingNumber() string {
	return "FB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
