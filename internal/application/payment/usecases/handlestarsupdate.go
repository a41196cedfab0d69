package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"waveshop/internal/application/payment/gateway"
	"waveshop/internal/application/payment/ledger"
	"waveshop/internal/domain/transaction"
	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

// The in-chat confirmation channel delivers two platform updates instead of
// an HTTP webhook: a pre-checkout query that must be approved before the
// charge, and a successful-payment update that resolves the transaction.

type ApprovePreCheckoutCommand struct {
	// Payload is the invoice payload we issued: the transaction id.
	Payload     string
	AmountMinor int64
	Currency    string
}

// ApprovePreCheckoutUseCase decides whether a pre-checkout query may
// proceed. Approval requires a known, still-pending transaction whose amount
// matches the query. It never mutates ledger state.
type ApprovePreCheckoutUseCase struct {
	transactions transaction.Repository
	logger       logger.Interface
}

func NewApprovePreCheckoutUseCase(transactions transaction.Repository, log logger.Interface) *ApprovePreCheckoutUseCase {
	return &ApprovePreCheckoutUseCase{transactions: transactions, logger: log}
}

func (uc *ApprovePreCheckoutUseCase) Execute(ctx context.Context, cmd ApprovePreCheckoutCommand) error {
	id, err := uuid.Parse(cmd.Payload)
	if err != nil {
		return fmt.Errorf("%w: invoice payload is not a transaction id", apperrors.ErrUnknownTransaction)
	}

	tx, err := uc.transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			return fmt.Errorf("%w: %s", apperrors.ErrUnknownTransaction, id)
		}
		return err
	}

	if tx.Status().IsTerminal() {
		uc.logger.Warnw("pre-checkout for resolved transaction rejected",
			"transaction_id", id,
			"status", tx.Status(),
		)
		return apperrors.NewConflictError("transaction already resolved")
	}

	if err := tx.ValidateCallbackAmount(cmd.AmountMinor); err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	return nil
}

type ConfirmStarsPaymentCommand struct {
	// Payload is the invoice payload echoed back in the update.
	Payload string
	// ChargeID is the platform's charge id, bound as the external id.
	ChargeID    string
	AmountMinor int64
	Currency    string
}

// ConfirmStarsPaymentUseCase commits a successful-payment update through the
// ledger, which makes redelivered updates as harmless as redelivered
// webhooks.
type ConfirmStarsPaymentUseCase struct {
	ledger *ledger.Ledger
	logger logger.Interface
}

func NewConfirmStarsPaymentUseCase(l *ledger.Ledger, log logger.Interface) *ConfirmStarsPaymentUseCase {
	return &ConfirmStarsPaymentUseCase{ledger: l, logger: log}
}

func (uc *ConfirmStarsPaymentUseCase) Execute(ctx context.Context, cmd ConfirmStarsPaymentCommand) (*ledger.Result, error) {
	if cmd.ChargeID == "" {
		return nil, fmt.Errorf("%w: missing charge id", apperrors.ErrMalformedPayload)
	}

	return uc.ledger.Apply(ctx, &gateway.WebhookOutcome{
		ExternalID:  cmd.ChargeID,
		Reference:   cmd.Payload,
		Status:      vo.StatusCompleted,
		AmountMinor: cmd.AmountMinor,
	})
}
