package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avolkhin/shipstream/internal/domain/model"
)

// SubmissionFacadeStub mimics retry worker interactions with the
// fulfillment facade.
type SubmissionFacadeStub struct {
	Batches     [][]model.FulfillmentOrder
	BatchesFn   func(context.Context, int) ([]model.FulfillmentOrder, error)
	SubmitFn    func(context.Context, int64) (*model.FulfillmentOrder, error)
	EscalateFn  func(context.Context, int64, string) (*model.FulfillmentOrder, error)
	Submitted   []int64
	Escalations map[int64]string

	mu        sync.Mutex
	callCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *SubmissionFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *SubmissionFacadeStub) Unlock() { s.mu.Unlock() }

// RetryCandidates returns batches from the configured queue.
func (s *SubmissionFacadeStub) RetryCandidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	if s.BatchesFn != nil {
		return s.BatchesFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.callCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// AttemptSubmission records the attempt and delegates when configured.
func (s *SubmissionFacadeStub) AttemptSubmission(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	s.mu.Lock()
	s.Submitted = append(s.Submitted, id)
	s.mu.Unlock()
	if s.SubmitFn != nil {
		return s.SubmitFn(ctx, id)
	}
	return &model.FulfillmentOrder{ID: id, Status: model.StatusOrdered}, nil
}

// EscalateFulfillment records the escalation reason.
func (s *SubmissionFacadeStub) EscalateFulfillment(ctx context.Context, id int64, reason string) (*model.FulfillmentOrder, error) {
	s.mu.Lock()
	if s.Escalations == nil {
		s.Escalations = make(map[int64]string)
	}
	s.Escalations[id] = reason
	s.mu.Unlock()
	if s.EscalateFn != nil {
		return s.EscalateFn(ctx, id, reason)
	}
	return &model.FulfillmentOrder{ID: id, Supplier: model.SupplierFallback}, nil
}

// FallbackFacadeStub mimics fallback worker interactions.
type FallbackFacadeStub struct {
	Batches   [][]model.FulfillmentOrder
	AdvanceFn func(context.Context, int64) (*model.FulfillmentOrder, error)
	Advanced  []int64

	mu        sync.Mutex
	callCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *FallbackFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *FallbackFacadeStub) Unlock() { s.mu.Unlock() }

// FallbackCandidates returns batches from the configured queue.
func (s *FallbackFacadeStub) FallbackCandidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	call := atomic.AddInt32(&s.callCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// AdvanceFallback records the advancement.
func (s *FallbackFacadeStub) AdvanceFallback(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	s.mu.Lock()
	s.Advanced = append(s.Advanced, id)
	s.mu.Unlock()
	if s.AdvanceFn != nil {
		return s.AdvanceFn(ctx, id)
	}
	return &model.FulfillmentOrder{ID: id, Status: model.StatusOrdered}, nil
}

// TrackingFacadeStub mimics tracking worker interactions.
type TrackingFacadeStub struct {
	Batches     [][]model.FulfillmentOrder
	ReconcileFn func(context.Context, int64) error
	Reconciled  []int64

	mu        sync.Mutex
	callCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *TrackingFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *TrackingFacadeStub) Unlock() { s.mu.Unlock() }

// TrackableRecords returns batches from the configured queue.
func (s *TrackingFacadeStub) TrackableRecords(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	call := atomic.AddInt32(&s.callCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// ReconcileTracking records the reconciliation.
func (s *TrackingFacadeStub) ReconcileTracking(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.Reconciled = append(s.Reconciled, id)
	s.mu.Unlock()
	if s.ReconcileFn != nil {
		return s.ReconcileFn(ctx, id)
	}
	return nil
}
