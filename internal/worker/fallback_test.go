package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	testhelpers "github.com/avolkhin/shipstream/internal/test"
	"github.com/avolkhin/shipstream/internal/usecase"
)

func TestNewFallbackAdvancerDefaults(t *testing.T) {
	proc := NewFallbackAdvancer(&testhelpers.FallbackFacadeStub{}, time.Second, 0, discardLogger())
	if proc.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", proc.batchSize)
	}
}

func TestFallbackAdvancerAdvancesCandidates(t *testing.T) {
	facade := &testhelpers.FallbackFacadeStub{
		Batches: [][]model.FulfillmentOrder{{
			{ID: 1, Supplier: model.SupplierFallback, Status: model.StatusPending},
			{ID: 2, Supplier: model.SupplierFallback, Status: model.StatusOrdered},
		}},
	}
	proc := NewFallbackAdvancer(facade, 10*time.Millisecond, 5, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		facade.Lock()
		done := len(facade.Advanced) >= 2
		facade.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for fallback advancement")
		case <-time.After(10 * time.Millisecond):
		}
	}

	proc.Stop()
	facade.Lock()
	defer facade.Unlock()
	if facade.Advanced[0] != 1 || facade.Advanced[1] != 2 {
		t.Fatalf("unexpected advancement order %v", facade.Advanced)
	}
}

func TestFallbackAdvancerSkipsLockedRecords(t *testing.T) {
	var ticks int32
	facade := &testhelpers.FallbackFacadeStub{
		Batches: [][]model.FulfillmentOrder{
			{{ID: 1, Supplier: model.SupplierFallback, Status: model.StatusPending}},
			{{ID: 2, Supplier: model.SupplierFallback, Status: model.StatusPending}},
		},
		AdvanceFn: func(_ context.Context, id int64) (*model.FulfillmentOrder, error) {
			if id == 1 {
				atomic.AddInt32(&ticks, 1)
				return nil, domainErrors.ErrLockHeld
			}
			atomic.AddInt32(&ticks, 1)
			return &model.FulfillmentOrder{ID: id, Status: model.StatusOrdered}, nil
		},
	}
	proc := NewFallbackAdvancer(facade, 5*time.Millisecond, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc.Start(ctx)

	deadline := time.After(time.Second)
	for {
		if atomic.LoadInt32(&ticks) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for both candidates")
		case <-time.After(10 * time.Millisecond):
		}
	}
	proc.Stop()
}

type fallbackLifecycleFacade struct {
	uc *usecase.FallbackUseCase
}

func (f *fallbackLifecycleFacade) FallbackCandidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	return f.uc.Pending(ctx, limit)
}

func (f *fallbackLifecycleFacade) AdvanceFallback(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	return f.uc.Advance(ctx, id)
}

// Drives a pending fallback record through the real use case and candidate
// filter: the ticker must carry it all the way to shipped, not leave it
// parked at ordered where the pending-only candidate query cannot see it.
func TestFallbackAdvancerShipsPendingRecord(t *testing.T) {
	fulfillments := testhelpers.NewFulfillmentRepositoryStub()
	audit := &testhelpers.AuditRepositoryStub{}
	order := fulfillments.Add(&model.FulfillmentOrder{
		SaleID:     "sale-1",
		LineItemID: "li-1",
		Supplier:   model.SupplierFallback,
		Status:     model.StatusPending,
		Fallback:   &model.FallbackInfo{Provider: model.SupplierFallback, From: model.SupplierPrimary, At: time.Now()},
	})

	facade := &fallbackLifecycleFacade{
		uc: usecase.NewFallbackUseCase(fulfillments, audit, discardLogger(), time.Minute),
	}
	proc := NewFallbackAdvancer(facade, 10*time.Millisecond, 5, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc.Start(ctx)

	deadline := time.After(2 * time.Second)
	for {
		got, err := fulfillments.GetByID(context.Background(), order.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status == model.StatusShipped {
			if got.TrackingNumber == nil || len(*got.TrackingNumber) == 0 {
				t.Fatalf("shipped without tracking: %+v", got)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("record stuck at %s after repeated ticks", got.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}

	proc.Stop()
}
