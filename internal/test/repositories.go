package test

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
	"github.com/avolkhin/shipstream/internal/domain/repository"
)

// FulfillmentRepositoryStub stores fulfillment records in memory with the
// same conditional-mutation semantics as the Postgres repository, so use
// case and worker tests exercise real guard behaviour.
type FulfillmentRepositoryStub struct {
	mu      sync.Mutex
	Records map[int64]*model.FulfillmentOrder
	Next    int64
	Err     error

	// Now lets tests pin the clock used for lock expiry.
	Now func() time.Time
}

// NewFulfillmentRepositoryStub constructs a stub with initialized state.
func NewFulfillmentRepositoryStub() *FulfillmentRepositoryStub {
	return &FulfillmentRepositoryStub{
		Records: make(map[int64]*model.FulfillmentOrder),
		Next:    1,
		Now:     time.Now,
	}
}

// Add seeds a record, assigning an id when none is set.
func (s *FulfillmentRepositoryStub) Add(order *model.FulfillmentOrder) *model.FulfillmentOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == 0 {
		order.ID = s.Next
		s.Next++
	} else if order.ID >= s.Next {
		s.Next = order.ID + 1
	}
	s.Records[order.ID] = order
	return order
}

func (s *FulfillmentRepositoryStub) Create(ctx context.Context, params repository.CreateFulfillmentParams) (*model.FulfillmentOrder, bool, error) {
	if s.Err != nil {
		return nil, false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.Records {
		if existing.SaleID == params.SaleID && existing.LineItemID == params.LineItemID {
			copied := *existing
			return &copied, false, nil
		}
	}
	now := s.Now()
	order := &model.FulfillmentOrder{
		ID:         s.Next,
		SaleID:     params.SaleID,
		LineItemID: params.LineItemID,
		SKU:        params.SKU,
		Quantity:   params.Quantity,
		Supplier:   params.Supplier,
		Status:     model.StatusPending,
		SalePrice:  params.SalePrice,
		Recipient:  params.Recipient,
		Fallback:   params.Fallback,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.Next++
	s.Records[order.ID] = order
	copied := *order
	return &copied, true, nil
}

func (s *FulfillmentRepositoryStub) GetByID(ctx context.Context, id int64) (*model.FulfillmentOrder, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *FulfillmentRepositoryStub) List(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FulfillmentOrder, 0, len(s.Records))
	for id := s.Next - 1; id >= 1 && len(out) < limit; id-- {
		if order, ok := s.Records[id]; ok {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *FulfillmentRepositoryStub) CandidatesForRetry(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FulfillmentOrder, 0)
	for id := int64(1); id < s.Next && len(out) < limit; id++ {
		order, ok := s.Records[id]
		if !ok {
			continue
		}
		if order.Supplier != model.SupplierPrimary || order.Submitted() || order.Escalated() {
			continue
		}
		if order.Status != model.StatusPending && order.Status != model.StatusFailed {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (s *FulfillmentRepositoryStub) PendingFallback(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Now()
	out := make([]model.FulfillmentOrder, 0)
	for id := int64(1); id < s.Next && len(out) < limit; id++ {
		order, ok := s.Records[id]
		if !ok {
			continue
		}
		if order.Supplier != model.SupplierFallback || !order.Escalated() {
			continue
		}
		if order.Status != model.StatusPending || order.Locked(now) {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (s *FulfillmentRepositoryStub) Trackable(ctx context.Context, limit int) ([]model.FulfillmentOrder, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.FulfillmentOrder, 0)
	for id := int64(1); id < s.Next && len(out) < limit; id++ {
		order, ok := s.Records[id]
		if !ok {
			continue
		}
		if order.Status.IsTerminal() || order.TrackingNumber == nil || *order.TrackingNumber == "" {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (s *FulfillmentRepositoryStub) CommitSubmission(ctx context.Context, id int64, supplierOrderID string, supplierCost, shippingCost, profit float64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Submitted() {
		return domainErrors.ErrAlreadySubmitted
	}
	if order.Status != model.StatusPending && order.Status != model.StatusFailed {
		return domainErrors.ErrInvalidTransition
	}
	order.SupplierOrderID = &supplierOrderID
	order.SupplierCost = &supplierCost
	order.ShippingCost = &shippingCost
	order.Profit = &profit
	order.Status = model.StatusOrdered
	order.UpdatedAt = s.Now()
	return nil
}

func (s *FulfillmentRepositoryStub) RecordFailure(ctx context.Context, id int64, message string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != model.StatusPending && order.Status != model.StatusFailed {
		return domainErrors.ErrInvalidTransition
	}
	now := s.Now()
	order.Status = model.StatusFailed
	order.Retry.Count++
	order.Retry.LastError = message
	order.Retry.LastAt = &now
	order.UpdatedAt = now
	return nil
}

func (s *FulfillmentRepositoryStub) RecordProfitBlock(ctx context.Context, id int64, supplierCost, shippingCost, profit float64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Submitted() {
		return domainErrors.ErrAlreadySubmitted
	}
	reason := model.BlockNegativeProfit
	order.Status = model.StatusFailed
	order.SupplierCost = &supplierCost
	order.ShippingCost = &shippingCost
	order.Profit = &profit
	order.BlockReason = &reason
	order.UpdatedAt = s.Now()
	return nil
}

func (s *FulfillmentRepositoryStub) Escalate(ctx context.Context, id int64, info model.FallbackInfo) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Escalated() || order.Submitted() || order.Status.IsTerminal() {
		return domainErrors.ErrAlreadyEscalated
	}
	order.Supplier = model.SupplierFallback
	order.Fallback = &info
	order.UpdatedAt = s.Now()
	return nil
}

func (s *FulfillmentRepositoryStub) Transition(ctx context.Context, id int64, from, to model.Status) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != from {
		return fmt.Errorf("%w: record is %s, not %s", domainErrors.ErrInvalidTransition, order.Status, from)
	}
	order.Status = to
	order.UpdatedAt = s.Now()
	return nil
}

func (s *FulfillmentRepositoryStub) MarkShipped(ctx context.Context, id int64, trackingNumber, carrier string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != model.StatusOrdered {
		return domainErrors.ErrInvalidTransition
	}
	order.Status = model.StatusShipped
	order.TrackingNumber = &trackingNumber
	order.Carrier = &carrier
	order.UpdatedAt = s.Now()
	return nil
}

func (s *FulfillmentRepositoryStub) SetStorefrontFulfillment(ctx context.Context, id int64, fulfillmentID string) (bool, error) {
	if s.Err != nil {
		return false, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return false, domainErrors.ErrNotFound
	}
	if order.StorefrontFulfillmentID != nil && *order.StorefrontFulfillmentID != "" {
		return false, nil
	}
	order.StorefrontFulfillmentID = &fulfillmentID
	order.UpdatedAt = s.Now()
	return true, nil
}

func (s *FulfillmentRepositoryStub) AcquireLock(ctx context.Context, id int64, ttl time.Duration) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	now := s.Now()
	if order.LockedUntil != nil && order.LockedUntil.After(now) {
		return domainErrors.ErrLockHeld
	}
	until := now.Add(ttl)
	order.LockedUntil = &until
	return nil
}

func (s *FulfillmentRepositoryStub) ReleaseLock(ctx context.Context, id int64) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Records[id]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.LockedUntil = nil
	return nil
}

func (s *FulfillmentRepositoryStub) Summary(ctx context.Context) (*model.FulfillmentSummary, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := &model.FulfillmentSummary{ByStatus: make(map[model.Status]int64)}
	for _, order := range s.Records {
		summary.Total++
		summary.ByStatus[order.Status]++
		if order.Profit != nil {
			summary.TotalProfit += *order.Profit
		}
	}
	return summary, nil
}

// VariantMappingRepositoryStub serves mappings from a map keyed by SKU.
type VariantMappingRepositoryStub struct {
	Mappings map[string]*model.VariantMapping
	Err      error
}

// NewVariantMappingRepositoryStub constructs a stub with an initialized map.
func NewVariantMappingRepositoryStub() *VariantMappingRepositoryStub {
	return &VariantMappingRepositoryStub{Mappings: make(map[string]*model.VariantMapping)}
}

func (s *VariantMappingRepositoryStub) GetBySKU(ctx context.Context, sku string) (*model.VariantMapping, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if mapping, ok := s.Mappings[sku]; ok && !mapping.Deleted {
		copied := *mapping
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// AuditRepositoryStub collects audit events in memory.
type AuditRepositoryStub struct {
	mu     sync.Mutex
	Events []model.AuditEvent
	Err    error
}

func (s *AuditRepositoryStub) Append(ctx context.Context, orderID int64, event, detail string) error {
	if s.Err != nil {
		return s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Events = append(s.Events, model.AuditEvent{
		ID:        fmt.Sprintf("evt-%d", len(s.Events)+1),
		OrderID:   orderID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *AuditRepositoryStub) ListByOrder(ctx context.Context, orderID int64) ([]model.AuditEvent, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AuditEvent, 0)
	for i := len(s.Events) - 1; i >= 0; i-- {
		if s.Events[i].OrderID == orderID {
			out = append(out, s.Events[i])
		}
	}
	return out, nil
}

// EventNames returns the recorded event names for one record, oldest first.
func (s *AuditRepositoryStub) EventNames(orderID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0)
	for _, evt := range s.Events {
		if evt.OrderID == orderID {
			out = append(out, evt.Event)
		}
	}
	return out
}
