package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/test"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestIntakeCreatesRecordPerLineItem(t *testing.T) {
	mappings := test.NewVariantMappingRepositoryStub()
	mappings.Mappings["SKU-1"] = &model.VariantMapping{SKU: "SKU-1", Source: model.SupplierPrimary, SupplierProductID: "p1", SupplierVariantID: "v1"}
	fulfillments := test.NewFulfillmentRepositoryStub()
	audit := &test.AuditRepositoryStub{}

	uc := NewIntakeUseCase(NewRoutingUseCase(mappings), fulfillments, audit, discardLogger())
	results, err := uc.Ingest(context.Background(), model.Sale{
		SaleID: "sale-1",
		LineItems: []model.SaleLineItem{
			{LineItemID: "li-1", SKU: "SKU-1", Quantity: 2, Price: 30},
			{LineItemID: "li-2", SKU: "SKU-X", Quantity: 1, Price: 10},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Created {
			t.Fatalf("expected record %d to be newly created", r.Order.ID)
		}
	}
	if results[0].Order.Supplier != model.SupplierPrimary || results[0].Order.SalePrice != 30 {
		t.Fatalf("unexpected first record %+v", results[0].Order)
	}
	if results[1].Order.Supplier != model.SupplierManual {
		t.Fatalf("expected manual supplier for unmapped item, got %s", results[1].Order.Supplier)
	}
	if got := audit.EventNames(results[0].Order.ID); len(got) != 1 || got[0] != model.AuditCreated {
		t.Fatalf("expected created audit event, got %v", got)
	}
}

func TestIntakeReplayedSaleIsIdempotent(t *testing.T) {
	mappings := test.NewVariantMappingRepositoryStub()
	fulfillments := test.NewFulfillmentRepositoryStub()
	audit := &test.AuditRepositoryStub{}

	uc := NewIntakeUseCase(NewRoutingUseCase(mappings), fulfillments, audit, discardLogger())
	sale := model.Sale{
		SaleID:    "sale-1",
		LineItems: []model.SaleLineItem{{LineItemID: "li-1", SKU: "SKU-1", Quantity: 1, Price: 10}},
	}

	first, err := uc.Ingest(context.Background(), sale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := uc.Ingest(context.Background(), sale)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first[0].Created || second[0].Created {
		t.Fatalf("expected created then replayed, got %v %v", first[0].Created, second[0].Created)
	}
	if first[0].Order.ID != second[0].Order.ID {
		t.Fatalf("replay returned different record: %d vs %d", first[0].Order.ID, second[0].Order.ID)
	}
	if len(fulfillments.Records) != 1 {
		t.Fatalf("expected a single stored record, got %d", len(fulfillments.Records))
	}
}

func TestIntakeDirectFallbackGetsFallbackInfo(t *testing.T) {
	mappings := test.NewVariantMappingRepositoryStub()
	mappings.Mappings["SKU-1"] = &model.VariantMapping{SKU: "SKU-1", Source: model.SupplierFallback, SupplierProductID: "p1", SupplierVariantID: "v1"}
	fulfillments := test.NewFulfillmentRepositoryStub()
	audit := &test.AuditRepositoryStub{}

	uc := NewIntakeUseCase(NewRoutingUseCase(mappings), fulfillments, audit, discardLogger())
	results, err := uc.Ingest(context.Background(), model.Sale{
		SaleID:    "sale-1",
		LineItems: []model.SaleLineItem{{LineItemID: "li-1", SKU: "SKU-1", Quantity: 1, Price: 10}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	order := results[0].Order
	if order.Fallback == nil || order.Fallback.Provider != model.SupplierFallback {
		t.Fatalf("expected fallback info at creation, got %+v", order.Fallback)
	}
	if order.Fallback.From != "" {
		t.Fatalf("direct fallback routing must not record an escalation source, got %s", order.Fallback.From)
	}
}
