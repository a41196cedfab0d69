package usecases

import (
	"context"
	"time"

	"waveshop/internal/application/payment/ledger"
	"waveshop/internal/domain/transaction"
	"waveshop/internal/shared/biztime"
	"waveshop/internal/shared/logger"
)

type SweepResult struct {
	Scanned  int
	Canceled int
}

// SweepPendingTransactionsUseCase cancels pending transactions older than
// the TTL. Cancellation goes through the ledger, so a confirmation racing
// the sweep loses or wins cleanly on the version guard either way.
type SweepPendingTransactionsUseCase struct {
	transactions transaction.Repository
	ledger       *ledger.Ledger
	ttl          time.Duration
	logger       logger.Interface
}

func NewSweepPendingTransactionsUseCase(
	transactions transaction.Repository,
	l *ledger.Ledger,
	ttl time.Duration,
	log logger.Interface,
) *SweepPendingTransactionsUseCase {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SweepPendingTransactionsUseCase{
		transactions: transactions,
		ledger:       l,
		ttl:          ttl,
		logger:       log,
	}
}

func (uc *SweepPendingTransactionsUseCase) Execute(ctx context.Context) (*SweepResult, error) {
	cutoff := biztime.NowUTC().Add(-uc.ttl)

	stale, err := uc.transactions.GetPendingOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{Scanned: len(stale)}
	for _, tx := range stale {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		expired, err := uc.ledger.Expire(ctx, tx.ID())
		if err != nil {
			// Keep sweeping; the failed one is retried next tick.
			uc.logger.Warnw("failed to expire pending transaction",
				"transaction_id", tx.ID(),
				"error", err,
			)
			continue
		}
		if !expired.Duplicate {
			result.Canceled++
		}
	}

	if result.Canceled > 0 {
		uc.logger.Infow("expired stale pending transactions",
			"scanned", result.Scanned,
			"canceled", result.Canceled,
		)
	}

	return result, nil
}
