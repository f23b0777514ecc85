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

// SubmissionFacade exposes the subset of application functionality required
// by the retry worker.
type SubmissionFacade interface {
	RetryCandidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)
	AttemptSubmission(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
	EscalateFulfillment(ctx context.Context, id int64, reason string) (*model.FulfillmentOrder, error)
}

// RetrySubmitter periodically re-submits records stuck before supplier
// acceptance and escalates the hopeless ones to the fallback supplier.
type RetrySubmitter struct {
	facade       SubmissionFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	maxRetries   int
	logger       *slog.Logger

	jobs   chan model.FulfillmentOrder
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewRetrySubmitter constructs the retry worker pool.
func NewRetrySubmitter(facade SubmissionFacade, pollInterval time.Duration, batchSize, workers, maxRetries int, logger *slog.Logger) *RetrySubmitter {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	return &RetrySubmitter{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		maxRetries:   maxRetries,
		logger:       logger,
		jobs:         make(chan model.FulfillmentOrder, batchSize*workers),
	}
}

// Start launches background processing.
func (p *RetrySubmitter) Start(ctx context.Context) {
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
func (p *RetrySubmitter) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *RetrySubmitter) dispatch(ctx context.Context) {
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

func (p *RetrySubmitter) fetchAndDispatch(ctx context.Context) {
	records, err := p.facade.RetryCandidates(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch retry candidates failed", slog.String("error", err.Error()))
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

func (p *RetrySubmitter) worker(ctx context.Context) {
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

func (p *RetrySubmitter) handleRecord(ctx context.Context, record model.FulfillmentOrder) {
	if record.BlockReason != nil && *record.BlockReason == model.BlockNegativeProfit {
		p.escalate(ctx, record.ID, "negative profit")
		return
	}

	_, err := p.facade.AttemptSubmission(ctx, record.ID)
	if err == nil {
		p.logger.Info("submission succeeded", slog.Int64("order_id", record.ID))
		return
	}

	switch {
	case errors.Is(err, domainErrors.ErrLockHeld):
		// Another worker owns the record right now.
	case errors.Is(err, domainErrors.ErrAlreadyEscalated):
	case errors.Is(err, domainErrors.ErrNegativeProfitBlocked):
		p.escalate(ctx, record.ID, "negative profit")
	case errors.Is(err, domainErrors.ErrMissingSupplierMapping):
		p.logger.Warn("submission blocked on missing mapping",
			slog.Int64("order_id", record.ID), slog.String("sku", record.SKU))
	default:
		var rateLimited supplier.TooManyRequestsError
		if errors.As(err, &rateLimited) {
			p.logger.Warn("supplier rate limited", slog.Duration("retry_after", rateLimited.RetryAfter))
			time.Sleep(rateLimited.RetryAfter)
			return
		}
		p.logger.Error("submission failed",
			slog.Int64("order_id", record.ID), slog.String("error", err.Error()))
		if domainErrors.Retryable(err) && record.Retry.Count+1 >= p.maxRetries {
			p.escalate(ctx, record.ID, "retry limit reached")
		}
	}
}

func (p *RetrySubmitter) escalate(ctx context.Context, id int64, reason string) {
	if _, err := p.facade.EscalateFulfillment(ctx, id, reason); err != nil {
		if errors.Is(err, domainErrors.ErrAlreadyEscalated) {
			return
		}
		p.logger.Error("escalation failed", slog.Int64("order_id", id), slog.String("error", err.Error()))
		return
	}
	p.logger.Info("escalated to fallback supplier", slog.Int64("order_id", id), slog.String("reason", reason))
}
