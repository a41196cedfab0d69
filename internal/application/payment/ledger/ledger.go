// Package ledger owns transaction state transitions and the idempotency
// guard that turns at-least-once provider deliveries into exactly-once
// subscription extensions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"waveshop/internal/application/payment/gateway"
	"waveshop/internal/domain/transaction"
	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/goroutine"
	"waveshop/internal/shared/logger"
)

// SubscriptionExtender is the subscription side effect invoked exactly once
// per completed transaction. The ledger guarantees the exactly-once, not the
// implementation behind this interface.
type SubscriptionExtender interface {
	Extend(ctx context.Context, userID, planID uint, days int) error
}

// TaskQueue enqueues outbound notification tasks for the external worker.
type TaskQueue interface {
	Enqueue(ctx context.Context, task string, payload any) error
}

const TaskPaymentCompleted = "payment_completed"

// Result is the recorded outcome of a transition. Duplicate deliveries get
// the previously recorded outcome with Duplicate set and no side effect.
type Result struct {
	TransactionID uuid.UUID
	Status        vo.Status
	Duplicate     bool
	ResolvedAt    *time.Time
}

type Ledger struct {
	transactions  transaction.Repository
	subscriptions SubscriptionExtender
	queue         TaskQueue // optional
	logger        logger.Interface
}

func New(transactions transaction.Repository, subscriptions SubscriptionExtender, log logger.Interface) *Ledger {
	return &Ledger{
		transactions:  transactions,
		subscriptions: subscriptions,
		logger:        log,
	}
}

// SetTaskQueue sets the notification queue (optional dependency).
func (l *Ledger) SetTaskQueue(queue TaskQueue) {
	l.queue = queue
}

// Apply commits a provider-reported outcome. Transitions are serialized per
// transaction by the repository's optimistic-version guard: of two
// concurrent deliveries only one proceeds past the update, the other
// observes the winner's terminal state and returns it as a duplicate.
func (l *Ledger) Apply(ctx context.Context, outcome *gateway.WebhookOutcome) (*Result, error) {
	ref := outcome.Reference
	if ref == "" {
		ref = outcome.ExternalID
	}
	tx, err := l.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}

	if tx.Status().IsTerminal() {
		return recorded(tx, true), nil
	}

	if err := tx.ValidateCallbackAmount(outcome.AmountMinor); err != nil {
		l.logger.Errorw("callback amount mismatch",
			"transaction_id", tx.ID(),
			"expected", tx.Amount().AmountMinor(),
			"reported", outcome.AmountMinor,
		)
		if failErr := tx.Fail("amount mismatch: " + err.Error()); failErr != nil {
			return nil, failErr
		}
		result, commitErr := l.commit(ctx, tx)
		if commitErr != nil {
			return nil, commitErr
		}
		if result.Duplicate {
			return result, nil
		}
		// The failed transition is durable; the error keeps the mismatch
		// from being acknowledged as a processed payment.
		return nil, fmt.Errorf("%w: transaction %s: %v", apperrors.ErrAmountMismatch, tx.ID(), err)
	}

	switch outcome.Status {
	case vo.StatusCompleted:
		if err := tx.Complete(outcome.ExternalID); err != nil {
			return nil, err
		}
	case vo.StatusCanceled:
		if err := tx.Cancel(outcome.ExternalID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedStatus, outcome.Status)
	}

	result, err := l.commit(ctx, tx)
	if err != nil || result.Duplicate {
		return result, err
	}

	if tx.Status().IsCompleted() {
		if err := l.extend(ctx, tx); err != nil {
			return result, err
		}
	}

	return result, nil
}

// Expire cancels an over-TTL pending transaction through the same transition
// function the provider callbacks use.
func (l *Ledger) Expire(ctx context.Context, id uuid.UUID) (*Result, error) {
	tx, err := l.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownTransaction, id)
		}
		return nil, err
	}

	if tx.Status().IsTerminal() {
		return recorded(tx, true), nil
	}

	if err := tx.Cancel(""); err != nil {
		return nil, err
	}

	return l.commit(ctx, tx)
}

// lookup resolves an outcome reference: the provider's external id, or our
// own transaction UUID when the confirmation channel echoes the invoice
// payload back. Never creates a transaction.
func (l *Ledger) lookup(ctx context.Context, ref string) (*transaction.Transaction, error) {
	tx, err := l.transactions.GetByExternalID(ctx, ref)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, transaction.ErrNotFound) {
		return nil, err
	}

	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		tx, err = l.transactions.GetByID(ctx, id)
		if err == nil {
			return tx, nil
		}
		if !errors.Is(err, transaction.ErrNotFound) {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownTransaction, ref)
}

// commit persists the transition. A version conflict means a concurrent
// delivery won the race; the winner's outcome is returned as a duplicate.
func (l *Ledger) commit(ctx context.Context, tx *transaction.Transaction) (*Result, error) {
	err := l.transactions.Update(ctx, tx)
	if err == nil {
		return recorded(tx, false), nil
	}

	if errors.Is(err, transaction.ErrVersionConflict) {
		current, readErr := l.transactions.GetByID(ctx, tx.ID())
		if readErr != nil {
			return nil, readErr
		}
		return recorded(current, true), nil
	}

	return nil, err
}

// extend invokes the subscription side effect once, synchronously. On
// failure the completed transition stays durable (money was received); the
// error is surfaced for reconciliation instead of rolling back.
func (l *Ledger) extend(ctx context.Context, tx *transaction.Transaction) error {
	if err := l.subscriptions.Extend(ctx, tx.UserID(), tx.PlanID(), tx.DurationDays()); err != nil {
		l.logger.Errorw("subscription extension failed after completed transaction",
			"error", err,
			"transaction_id", tx.ID(),
			"user_id", tx.UserID(),
		)
		return &apperrors.ExtensionError{TransactionID: tx.ID().String(), Err: err}
	}

	l.logger.Infow("transaction completed",
		"transaction_id", tx.ID(),
		"user_id", tx.UserID(),
		"amount", tx.Amount().String(),
	)

	l.notifyCompleted(tx)
	return nil
}

func (l *Ledger) notifyCompleted(tx *transaction.Transaction) {
	if l.queue == nil {
		return
	}

	payload := map[string]any{
		"transaction_id": tx.ID().String(),
		"user_id":        tx.UserID(),
		"plan_id":        tx.PlanID(),
		"duration_days":  tx.DurationDays(),
		"amount_minor":   tx.Amount().AmountMinor(),
		"currency":       tx.Amount().Currency(),
	}

	goroutine.SafeGo(l.logger, "ledger-notify-completed", func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := l.queue.Enqueue(notifyCtx, TaskPaymentCompleted, payload); err != nil {
			l.logger.Warnw("failed to enqueue completion notification",
				"transaction_id", tx.ID(),
				"error", err,
			)
		}
	})
}

func recorded(tx *transaction.Transaction, duplicate bool) *Result {
	return &Result{
		TransactionID: tx.ID(),
		Status:        tx.Status(),
		Duplicate:     duplicate,
		ResolvedAt:    tx.ResolvedAt(),
	}
}
