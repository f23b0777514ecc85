package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/avolkhin/shipstream/internal/adapter/supplier"
	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
)

// TrackingFacade exposes the subset of application functionality required
// by the tracking worker.
type TrackingFacade interface {
	TrackableRecords(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)
	ReconcileTracking(ctx context.Context, id int64) error
}

// TrackingReconciler polls shipment progress for in-flight records and
// pushes the resulting status changes downstream.
type TrackingReconciler struct {
	facade       TrackingFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.FulfillmentOrder
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewTrackingReconciler constructs the tracking worker pool.
func NewTrackingReconciler(facade TrackingFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *TrackingReconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &TrackingReconciler{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.FulfillmentOrder, batchSize*workers),
	}
}

// Start launches background processing.
func (p *TrackingReconciler) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(runCtx)
	}

	p.wg.Add(1)
	go p.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (p *TrackingReconciler) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *TrackingReconciler) dispatch(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.jobs)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.fetchAndDispatch(ctx)
		}
	}
}

func (p *TrackingReconciler) fetchAndDispatch(ctx context.Context) {
	records, err := p.facade.TrackableRecords(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch trackable records failed", slog.String("error", err.Error()))
		return
	}
	for _, record := range records {
		select {
		case <-ctx.Done():
			return
		case p.jobs <- record:
		}
	}
}

func (p *TrackingReconciler) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case record, ok := <-p.jobs:
			if !ok {
				return
			}
			p.handleRecord(ctx, record)
		}
	}
}

func (p *TrackingReconciler) handleRecord(ctx context.Context, record model.FulfillmentOrder) {
	if err := p.facade.ReconcileTracking(ctx, record.ID); err != nil {
		if errors.Is(err, domainErrors.ErrLockHeld) {
			return
		}
		var rateLimited supplier.TooManyRequestsError
		if errors.As(err, &rateLimited) {
			p.logger.Warn("tracking rate limited", slog.Duration("retry_after", rateLimited.RetryAfter))
			time.Sleep(rateLimited.RetryAfter)
			return
		}
		p.logger.Error("tracking reconciliation failed",
			slog.Int64("order_id", record.ID), slog.String("error", err.Error()))
	}
}
