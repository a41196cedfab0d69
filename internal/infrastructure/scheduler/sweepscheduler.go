package scheduler

import (
	"context"
	"sync"
	"time"

	paymentUsecases "waveshop/internal/application/payment/usecases"
	"waveshop/internal/shared/logger"
)

// SweepScheduler periodically cancels pending transactions that outlived
// their TTL, so abandoned checkouts don't accumulate as open rows.
type SweepScheduler struct {
	sweepUC  *paymentUsecases.SweepPendingTransactionsUseCase
	logger   logger.Interface
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	interval time.Duration
}

func NewSweepScheduler(
	sweepUC *paymentUsecases.SweepPendingTransactionsUseCase,
	interval time.Duration,
	log logger.Interface,
) *SweepScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SweepScheduler{
		sweepUC:  sweepUC,
		logger:   log,
		stopChan: make(chan struct{}),
		interval: interval,
	}
}

// Start launches the sweep loop and returns immediately.
func (s *SweepScheduler) Start(ctx context.Context) {
	s.logger.Infow("starting transaction sweep scheduler", "interval", s.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runSweepLoop(ctx)
	}()
}

// Stop stops the scheduler gracefully. Safe to call multiple times.
func (s *SweepScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Infow("stopping transaction sweep scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("transaction sweep scheduler stopped")
	})
}

func (s *SweepScheduler) runSweepLoop(ctx context.Context) {
	// Run immediately on startup to clear anything that went stale while the
	// process was down.
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("sweep scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *SweepScheduler) sweep(ctx context.Context) {
	startTime := time.Now()

	result, err := s.sweepUC.Execute(ctx)
	if err != nil {
		s.logger.Errorw("transaction sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if result.Canceled > 0 {
		s.logger.Infow("transaction sweep finished",
			"scanned", result.Scanned,
			"canceled", result.Canceled,
			"duration", time.Since(startTime),
		)
	}
}
