package test

import (
	"context"

	"github.com/avolkhin/shipstream/internal/domain/model"
)

// HandlerFacadeStub provides controllable behaviour for HTTP handler tests.
// Unconfigured methods return a plain pending record.
type HandlerFacadeStub struct {
	IngestFn    func(context.Context, model.Sale) ([]model.IntakeResult, error)
	SubmitFn    func(context.Context, int64) (*model.FulfillmentOrder, error)
	ListFn      func(context.Context, int) ([]model.FulfillmentOrder, error)
	GetFn       func(context.Context, int64) (*model.FulfillmentOrder, error)
	EventsFn    func(context.Context, int64) ([]model.AuditEvent, error)
	SummaryFn   func(context.Context) (*model.FulfillmentSummary, error)
	ApproveFn   func(context.Context, int64) (*model.FulfillmentOrder, error)
	DeliverFn   func(context.Context, int64) (*model.FulfillmentOrder, error)
	CancelFn    func(context.Context, int64) (*model.FulfillmentOrder, error)
	ReturnFn    func(context.Context, int64) (*model.FulfillmentOrder, error)
	Ingested    []model.Sale
	Submissions []int64
}

func (s *HandlerFacadeStub) defaultOrder(id int64) *model.FulfillmentOrder {
	return &model.FulfillmentOrder{ID: id, SaleID: "sale-1", LineItemID: "li-1", Supplier: model.SupplierPrimary, Status: model.StatusPending}
}

func (s *HandlerFacadeStub) IngestSale(ctx context.Context, sale model.Sale) ([]model.IntakeResult, error) {
	s.Ingested = append(s.Ingested, sale)
	if s.IngestFn != nil {
		return s.IngestFn(ctx, sale)
	}
	results := make([]model.IntakeResult, 0, len(sale.LineItems))
	for i, item := range sale.LineItems {
		results = append(results, model.IntakeResult{
			Decision: model.RoutingDecision{LineItemID: item.LineItemID, Supplier: model.SupplierPrimary, Mode: model.ModeAuto},
			Order:    &model.FulfillmentOrder{ID: int64(i + 1), SaleID: sale.SaleID, LineItemID: item.LineItemID, Supplier: model.SupplierPrimary, Status: model.StatusPending},
			Created:  true,
		})
	}
	return results, nil
}

func (s *HandlerFacadeStub) AttemptSubmission(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	s.Submissions = append(s.Submissions, id)
	if s.SubmitFn != nil {
		return s.SubmitFn(ctx, id)
	}
	return &model.FulfillmentOrder{ID: id, Status: model.StatusOrdered}, nil
}

func (s *HandlerFacadeStub) Fulfillments(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	if s.ListFn != nil {
		return s.ListFn(ctx, limit)
	}
	return []model.FulfillmentOrder{*s.defaultOrder(1)}, nil
}

func (s *HandlerFacadeStub) Fulfillment(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, id)
	}
	return s.defaultOrder(id), nil
}

func (s *HandlerFacadeStub) FulfillmentEvents(ctx context.Context, id int64) ([]model.AuditEvent, error) {
	if s.EventsFn != nil {
		return s.EventsFn(ctx, id)
	}
	return []model.AuditEvent{{ID: "evt-1", OrderID: id, Event: model.AuditCreated}}, nil
}

func (s *HandlerFacadeStub) Summary(ctx context.Context) (*model.FulfillmentSummary, error) {
	if s.SummaryFn != nil {
		return s.SummaryFn(ctx)
	}
	return &model.FulfillmentSummary{Total: 1, ByStatus: map[model.Status]int64{model.StatusPending: 1}}, nil
}

func (s *HandlerFacadeStub) Approve(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if s.ApproveFn != nil {
		return s.ApproveFn(ctx, id)
	}
	return &model.FulfillmentOrder{ID: id, Status: model.StatusOrdered}, nil
}

func (s *HandlerFacadeStub) MarkDelivered(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if s.DeliverFn != nil {
		return s.DeliverFn(ctx, id)
	}
	return &model.FulfillmentOrder{ID: id, Status: model.StatusDelivered}, nil
}

func (s *HandlerFacadeStub) Cancel(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, id)
	}
	return &model.FulfillmentOrder{ID: id, Status: model.StatusCancelled}, nil
}

func (s *HandlerFacadeStub) Return(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if s.ReturnFn != nil {
		return s.ReturnFn(ctx, id)
	}
	return &model.FulfillmentOrder{ID: id, Status: model.StatusReturned}, nil
}

// HealthCheckerStub reports configurable storage health.
type HealthCheckerStub struct {
	Err error
}

func (s HealthCheckerStub) HealthCheck(ctx context.Context) error {
	return s.Err
}
