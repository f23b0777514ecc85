package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/avolkhin/shipstream/internal/adapter/supplier"
	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	testhelpers "github.com/avolkhin/shipstream/internal/test"
)

func TestNewTrackingReconcilerDefaults(t *testing.T) {
	proc := NewTrackingReconciler(&testhelpers.TrackingFacadeStub{}, time.Second, 0, 0, discardLogger())
	if proc.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", proc.batchSize)
	}
	if proc.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", proc.workers)
	}
}

func TestTrackingReconcilerProcessesRecords(t *testing.T) {
	tracking := "TRK-1"
	facade := &testhelpers.TrackingFacadeStub{
		Batches: [][]model.FulfillmentOrder{{{ID: 1, Status: model.StatusOrdered, TrackingNumber: &tracking}}},
	}
	proc := NewTrackingReconciler(facade, 10*time.Millisecond, 1, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		facade.Lock()
		done := len(facade.Reconciled) > 0
		facade.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for reconciliation")
		case <-time.After(10 * time.Millisecond):
		}
	}

	proc.Stop()
	facade.Lock()
	defer facade.Unlock()
	if facade.Reconciled[0] != 1 {
		t.Fatalf("expected record 1 reconciled, got %d", facade.Reconciled[0])
	}
}

func TestTrackingReconcilerHandlesRateLimiting(t *testing.T) {
	tracking := "TRK-1"
	attempts := int32(0)
	facade := &testhelpers.TrackingFacadeStub{
		Batches: [][]model.FulfillmentOrder{
			{{ID: 1, Status: model.StatusOrdered, TrackingNumber: &tracking}},
			{{ID: 1, Status: model.StatusOrdered, TrackingNumber: &tracking}},
		},
		ReconcileFn: func(context.Context, int64) error {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return domainErrors.SupplierCallError{
					Op:  "get tracking",
					Err: supplier.TooManyRequestsError{RetryAfter: 10 * time.Millisecond},
				}
			}
			return nil
		},
	}
	proc := NewTrackingReconciler(facade, 5*time.Millisecond, 1, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc.Start(ctx)

	deadline := time.After(time.Second)
	for {
		if atomic.LoadInt32(&attempts) >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for retry after rate limit")
		case <-time.After(10 * time.Millisecond):
		}
	}
	proc.Stop()
}

func TestTrackingReconcilerSkipsLockedRecords(t *testing.T) {
	tracking := "TRK-1"
	facade := &testhelpers.TrackingFacadeStub{
		Batches: [][]model.FulfillmentOrder{{
			{ID: 1, Status: model.StatusShipped, TrackingNumber: &tracking},
			{ID: 2, Status: model.StatusShipped, TrackingNumber: &tracking},
		}},
		ReconcileFn: func(_ context.Context, id int64) error {
			if id == 1 {
				return domainErrors.ErrLockHeld
			}
			return nil
		},
	}
	proc := NewTrackingReconciler(facade, 10*time.Millisecond, 5, 1, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	proc.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		facade.Lock()
		done := len(facade.Reconciled) >= 2
		facade.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for reconciliation")
		case <-time.After(10 * time.Millisecond):
		}
	}

	proc.Stop()
}
