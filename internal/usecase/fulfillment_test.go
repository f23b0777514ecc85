package usecase

import (
	"context"
	"errors"
	"testing"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/test"
)

func newFulfillmentFixture() (*FulfillmentUseCase, *test.FulfillmentRepositoryStub, *test.AuditRepositoryStub) {
	fulfillments := test.NewFulfillmentRepositoryStub()
	audit := &test.AuditRepositoryStub{}
	return NewFulfillmentUseCase(fulfillments, audit, discardLogger()), fulfillments, audit
}

func TestApproveMovesPendingToOrdered(t *testing.T) {
	uc, fulfillments, audit := newFulfillmentFixture()
	order := fulfillments.Add(&model.FulfillmentOrder{
		SaleID: "sale-1", LineItemID: "li-1", Supplier: model.SupplierManual, Status: model.StatusPending,
	})

	got, err := uc.Approve(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusOrdered {
		t.Fatalf("expected ordered, got %s", got.Status)
	}
	if names := audit.EventNames(order.ID); len(names) != 1 || names[0] != model.AuditAdminAction {
		t.Fatalf("expected admin audit event, got %v", names)
	}
}

func TestApproveRejectsShippedRecord(t *testing.T) {
	uc, fulfillments, _ := newFulfillmentFixture()
	order := fulfillments.Add(&model.FulfillmentOrder{
		SaleID: "sale-1", LineItemID: "li-1", Supplier: model.SupplierManual, Status: model.StatusShipped,
	})

	if _, err := uc.Approve(context.Background(), order.ID); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestMarkDeliveredFromShipped(t *testing.T) {
	uc, fulfillments, _ := newFulfillmentFixture()
	order := fulfillments.Add(&model.FulfillmentOrder{
		SaleID: "sale-1", LineItemID: "li-1", Supplier: model.SupplierPrimary, Status: model.StatusShipped,
	})

	got, err := uc.MarkDelivered(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusDelivered {
		t.Fatalf("expected delivered, got %s", got.Status)
	}
}

func TestCancelNonTerminal(t *testing.T) {
	uc, fulfillments, _ := newFulfillmentFixture()
	order := fulfillments.Add(&model.FulfillmentOrder{
		SaleID: "sale-1", LineItemID: "li-1", Supplier: model.SupplierPrimary, Status: model.StatusFailed,
	})

	got, err := uc.Cancel(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", got.Status)
	}
}

func TestCancelTerminalFails(t *testing.T) {
	uc, fulfillments, _ := newFulfillmentFixture()
	order := fulfillments.Add(&model.FulfillmentOrder{
		SaleID: "sale-1", LineItemID: "li-1", Supplier: model.SupplierPrimary, Status: model.StatusDelivered,
	})

	if _, err := uc.Cancel(context.Background(), order.ID); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestReturnFromDeliveredFails(t *testing.T) {
	uc, fulfillments, _ := newFulfillmentFixture()
	order := fulfillments.Add(&model.FulfillmentOrder{
		SaleID: "sale-1", LineItemID: "li-1", Supplier: model.SupplierPrimary, Status: model.StatusReturned,
	})

	if _, err := uc.Return(context.Background(), order.ID); !errors.Is(err, domainErrors.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestEventsForUnknownRecord(t *testing.T) {
	uc, _, _ := newFulfillmentFixture()
	if _, err := uc.Events(context.Background(), 404); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSummaryAggregates(t *testing.T) {
	uc, fulfillments, _ := newFulfillmentFixture()
	profit := 12.5
	fulfillments.Add(&model.FulfillmentOrder{SaleID: "s1", LineItemID: "l1", Status: model.StatusOrdered, Profit: &profit})
	fulfillments.Add(&model.FulfillmentOrder{SaleID: "s2", LineItemID: "l1", Status: model.StatusFailed})

	summary, err := uc.Summary(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Total != 2 || summary.ByStatus[model.StatusOrdered] != 1 || summary.TotalProfit != 12.5 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}
