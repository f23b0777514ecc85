package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/avolkhin/shipstream/internal/domain/errors"
	"github.com/avolkhin/shipstream/internal/domain/model"
)

// FallbackFacade exposes the subset of application functionality required
// by the fallback worker.
type FallbackFacade interface {
	FallbackCandidates(ctx context.Context, limit int) ([]model.FulfillmentOrder, error)
	AdvanceFallback(ctx context.Context, id int64) (*model.FulfillmentOrder, error)
}

// FallbackAdvancer walks escalated records through the fallback channel,
// shipping each candidate in a single pass.
type FallbackAdvancer struct {
	facade       FallbackFacade
	pollInterval time.Duration
	batchSize    int
	logger       *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewFallbackAdvancer constructs the fallback worker.
func NewFallbackAdvancer(facade FallbackFacade, pollInterval time.Duration, batchSize int, logger *slog.Logger) *FallbackAdvancer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &FallbackAdvancer{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// Start launches background processing.
func (p *FallbackAdvancer) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.run(runCtx)
}

// Stop waits for the worker to finish.
func (p *FallbackAdvancer) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *FallbackAdvancer) run(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *FallbackAdvancer) tick(ctx context.Context) {
	records, err := p.facade.FallbackCandidates(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("fetch fallback candidates failed", slog.String("error", err.Error()))
		return
	}
	for _, record := range records {
		if ctx.Err() != nil {
			return
		}
		advanced, err := p.facade.AdvanceFallback(ctx, record.ID)
		if err != nil {
			if errors.Is(err, domainErrors.ErrLockHeld) {
				continue
			}
			p.logger.Error("fallback advancement failed",
				slog.Int64("order_id", record.ID), slog.String("error", err.Error()))
			continue
		}
		if advanced.Status != record.Status {
			p.logger.Info("fallback record advanced",
				slog.Int64("order_id", record.ID),
				slog.String("from", string(record.Status)),
				slog.String("to", string(advanced.Status)))
		}
	}
}
