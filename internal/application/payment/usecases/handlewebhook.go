package usecases

import (
	"context"
	"net/http"
	"net/netip"

	"waveshop/internal/application/payment/gateway"
	"waveshop/internal/application/payment/ledger"
	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

type HandleWebhookCommand struct {
	GatewayType string
	Body        []byte
	Header      http.Header
	SourceIP    netip.Addr
}

// HandleWebhookUseCase processes a provider callback in a fixed order:
// authenticate the origin, parse the payload, then commit through the
// ledger. Nothing touches transaction state before authentication passes.
type HandleWebhookUseCase struct {
	gateways *gateway.Factory
	ledger   *ledger.Ledger
	logger   logger.Interface
}

func NewHandleWebhookUseCase(gateways *gateway.Factory, l *ledger.Ledger, log logger.Interface) *HandleWebhookUseCase {
	return &HandleWebhookUseCase{
		gateways: gateways,
		ledger:   l,
		logger:   log,
	}
}

func (uc *HandleWebhookUseCase) Execute(ctx context.Context, cmd HandleWebhookCommand) (*ledger.Result, error) {
	gt, err := vo.NewGatewayType(cmd.GatewayType)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	gw, err := uc.gateways.Gateway(gt)
	if err != nil {
		return nil, err
	}

	if err := gw.Authenticate(cmd.Body, cmd.Header, cmd.SourceIP); err != nil {
		uc.logger.Warnw("webhook authentication rejected",
			"gateway", gt,
			"source_ip", cmd.SourceIP,
			"error", err,
		)
		return nil, err
	}

	outcome, err := gw.ParseWebhook(cmd.Body, cmd.Header)
	if err != nil {
		uc.logger.Warnw("webhook payload rejected", "gateway", gt, "error", err)
		return nil, err
	}

	result, err := uc.ledger.Apply(ctx, outcome)
	if err != nil {
		return result, err
	}

	if result.Duplicate {
		uc.logger.Infow("duplicate webhook delivery acknowledged",
			"gateway", gt,
			"transaction_id", result.TransactionID,
			"status", result.Status,
		)
	}

	return result, nil
}
