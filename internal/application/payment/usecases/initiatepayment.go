package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"waveshop/internal/application/payment/gateway"
	"waveshop/internal/domain/transaction"
	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

type InitiatePaymentCommand struct {
	UserID       uint
	GatewayType  string
	AmountMinor  int64
	Currency     string
	PlanID       uint
	DurationDays int
	Description  string
}

type InitiatePaymentResult struct {
	TransactionID uuid.UUID
	Kind          gateway.ResultKind
	RedirectURL   string
	InvoiceHandle string
}

// InitiatePaymentUseCase opens a pending transaction and asks the selected
// provider to create the payment. The pending record is persisted before the
// outbound call so a crash mid-flight leaves a sweepable row, never an
// untracked provider payment.
type InitiatePaymentUseCase struct {
	transactions  transaction.Repository
	gateways      *gateway.Factory
	createTimeout time.Duration
	logger        logger.Interface
}

func NewInitiatePaymentUseCase(
	transactions transaction.Repository,
	gateways *gateway.Factory,
	createTimeout time.Duration,
	log logger.Interface,
) *InitiatePaymentUseCase {
	if createTimeout <= 0 {
		createTimeout = 15 * time.Second
	}
	return &InitiatePaymentUseCase{
		transactions:  transactions,
		gateways:      gateways,
		createTimeout: createTimeout,
		logger:        log,
	}
}

func (uc *InitiatePaymentUseCase) Execute(ctx context.Context, cmd InitiatePaymentCommand) (*InitiatePaymentResult, error) {
	gt, err := vo.NewGatewayType(cmd.GatewayType)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	gw, err := uc.gateways.Gateway(gt)
	if err != nil {
		return nil, err
	}

	amount := vo.NewMoney(cmd.AmountMinor, cmd.Currency)
	tx, err := transaction.NewTransaction(cmd.UserID, gt, amount, cmd.PlanID, cmd.DurationDays)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if err := uc.transactions.Create(ctx, tx); err != nil {
		uc.logger.Errorw("failed to persist pending transaction", "error", err, "user_id", cmd.UserID)
		return nil, apperrors.NewInternalError("failed to create transaction")
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.createTimeout)
	defer cancel()

	created, err := gw.CreatePayment(callCtx, tx.ID(), amount, cmd.Description)
	if err != nil {
		// The row stays pending; the TTL sweep cancels it if the user never
		// retries.
		uc.logger.Errorw("provider rejected payment creation",
			"error", err,
			"gateway", gt,
			"transaction_id", tx.ID(),
		)
		return nil, err
	}

	if created.ExternalID != "" {
		if err := tx.AttachProviderRef(created.ExternalID); err != nil {
			return nil, apperrors.NewInternalError(err.Error())
		}
		if err := uc.transactions.Update(ctx, tx); err != nil {
			// Without the stored provider id the confirmation callback cannot
			// be matched, so surface the failure instead of handing out a
			// checkout link.
			uc.logger.Errorw("failed to bind provider ref",
				"error", err,
				"transaction_id", tx.ID(),
				"external_id", created.ExternalID,
			)
			return nil, apperrors.NewInternalError("failed to record provider reference")
		}
	}

	uc.logger.Infow("payment initiated",
		"transaction_id", tx.ID(),
		"gateway", gt,
		"user_id", cmd.UserID,
		"amount", amount.String(),
	)

	return &InitiatePaymentResult{
		TransactionID: tx.ID(),
		Kind:          created.Kind,
		RedirectURL:   created.RedirectURL,
		InvoiceHandle: created.InvoiceHandle,
	}, nil
}
