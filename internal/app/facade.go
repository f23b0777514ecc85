package app

import (
	"context"

	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/usecase"
)

// FulfillmentFacade is the single application surface used by the HTTP
// handlers and the background workers.
type FulfillmentFacade struct {
	intake     *usecase.IntakeUseCase
	submission *usecase.SubmissionUseCase
	fallback   *usecase.FallbackUseCase
	tracking   *usecase.TrackingUseCase
	admin      *usecase.FulfillmentUseCase
}

func NewFulfillmentFacade(
	intake *usecase.IntakeUseCase,
	submission *usecase.SubmissionUseCase,
	fallback *usecase.FallbackUseCase,
	tracking *usecase.TrackingUseCase,
	admin *usecase.FulfillmentUseCase,
) *FulfillmentFacade {
	return &FulfillmentFacade{
		intake:     intake,
		submission: submission,
		fallback:   fallback,
		tracking:   tracking,
		admin:      admin,
	}
}

func (f *FulfillmentFacade) IngestSale(ctx context.Context, sale model.Sale) ([]model.IntakeResult, error) {
	return f.intake.Ingest(ctx, sale)
}

func (f *FulfillmentFacade) AttemptSubmission(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.submission.SubmitWithLock(ctx, id)
}

func (f *FulfillmentFacade) EscalateFulfillment(ctx context.Context, id int64, reason string) (*model.FulfillmentOrder, error) {
	return f.submission.Escalate(ctx, id, reason)
}

func (f *FulfillmentFacade) RetryCandidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return f.submission.Candidates(ctx, limit)
}

func (f *FulfillmentFacade) FallbackCandidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return f.fallback.Pending(ctx, limit)
}

func (f *FulfillmentFacade) AdvanceFallback(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.fallback.Advance(ctx, id)
}

func (f *FulfillmentFacade) TrackableRecords(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return f.tracking.Trackable(ctx, limit)
}

func (f *FulfillmentFacade) ReconcileTracking(ctx context.Context, id int64) error {
	return f.tracking.Reconcile(ctx, id)
}

func (f *FulfillmentFacade) Fulfillments(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return f.admin.List(ctx, limit)
}

func (f *FulfillmentFacade) Fulfillment(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.admin.Get(ctx, id)
}

func (f *FulfillmentFacade) FulfillmentEvents(ctx context.Context, id int64) ([]model.AuditEvent, error) {
	return f.admin.Events(ctx, id)
}

func (f *FulfillmentFacade) Summary(ctx context.Context) (*model.FulfillmentSummary, error) {
	return f.admin.Summary(ctx)
}

func (f *FulfillmentFacade) Approve(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.admin.Approve(ctx, id)
}

func (f *FulfillmentFacade) MarkDelivered(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.admin.MarkDelivered(ctx, id)
}

func (f *FulfillmentFacade) Cancel(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.admin.Cancel(ctx, id)
}

func (f *FulfillmentFacade) Return(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.admin.Return(ctx, id)
}
