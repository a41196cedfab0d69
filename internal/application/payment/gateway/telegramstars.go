package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"

	"github.com/google/uuid"

	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

// InvoiceCreator is the Bot API surface the stars variant needs.
type InvoiceCreator interface {
	CreateInvoiceLink(ctx context.Context, title, description, payload, currency string, amount int64) (string, error)
}

type StarsConfig struct {
	Currency string
}

// StarsGateway is the in-chat variant. It issues a Telegram Stars invoice
// through the Bot API and has no HTTP webhook: confirmation arrives as a
// platform update carrying the invoice payload.
type StarsGateway struct {
	cfg    StarsConfig
	bot    InvoiceCreator
	logger logger.Interface
}

var _ PaymentGateway = (*StarsGateway)(nil)

func NewStarsGateway(cfg StarsConfig, bot InvoiceCreator, log logger.Interface) (*StarsGateway, error) {
	if bot == nil {
		return nil, apperrors.NewConfigurationError("telegram bot not configured for stars gateway")
	}
	if cfg.Currency == "" {
		cfg.Currency = "XTR"
	}
	return &StarsGateway{cfg: cfg, bot: bot, logger: log}, nil
}

func (g *StarsGateway) Type() vo.GatewayType {
	return vo.GatewayTelegramStars
}

func (g *StarsGateway) CreatePayment(ctx context.Context, txID uuid.UUID, amount vo.Money, description string) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrInvalidAmount, amount.AmountMinor())
	}

	// The invoice payload carries the transaction id; it comes back in the
	// successful_payment update and keys the ledger lookup.
	link, err := g.bot.CreateInvoiceLink(ctx, description, description, txID.String(), g.cfg.Currency, amount.AmountMinor())
	if err != nil {
		g.logger.Errorw("failed to create invoice link", "error", err, "transaction_id", txID)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayUnavailable, err)
	}

	return &PaymentResult{
		Kind:          ResultInvoice,
		InvoiceHandle: link,
	}, nil
}

func (g *StarsGateway) ParseWebhook(_ []byte, _ http.Header) (*WebhookOutcome, error) {
	return nil, apperrors.ErrWebhookNotSupported
}

func (g *StarsGateway) Authenticate(_ []byte, _ http.Header, _ netip.Addr) error {
	return apperrors.ErrWebhookNotSupported
}
