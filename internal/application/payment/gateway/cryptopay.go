package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/google/uuid"

	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

// webhookSecretHeader carries the shared secret token on inbound callbacks.
const webhookSecretHeader = "X-Webhook-Secret-Token"

type CryptopayConfig struct {
	APIToken      string
	Currency      string
	APIBase       string
	WebhookSecret string
	AllowUnsigned bool
}

// CryptopayGateway is the secret-token redirect variant and the template for
// future redirect gateways: hosted invoice out, token-authenticated webhook in.
type CryptopayGateway struct {
	cfg           CryptopayConfig
	httpClient    *http.Client
	authenticator *SecretTokenAuthenticator
	logger        logger.Interface
}

var _ PaymentGateway = (*CryptopayGateway)(nil)

func NewCryptopayGateway(cfg CryptopayConfig, httpClient *http.Client, log logger.Interface) (*CryptopayGateway, error) {
	if cfg.APIToken == "" {
		return nil, apperrors.NewConfigurationError("cryptopay API token missing")
	}
	if cfg.APIBase == "" {
		return nil, apperrors.NewConfigurationError("cryptopay API base missing")
	}

	return &CryptopayGateway{
		cfg:           cfg,
		httpClient:    httpClient,
		authenticator: NewSecretTokenAuthenticator(cfg.WebhookSecret, cfg.AllowUnsigned),
		logger:        log,
	}, nil
}

func (g *CryptopayGateway) Type() vo.GatewayType {
	return vo.GatewayCryptopay
}

type cryptopayCreateRequest struct {
	Amount      string `json:"amount"`
	Fiat        string `json:"fiat"`
	Description string `json:"description,omitempty"`
	Payload     string `json:"payload"`
}

type cryptopayCreateResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		InvoiceID int64  `json:"invoice_id"`
		PayURL    string `json:"pay_url"`
	} `json:"result"`
}

func (g *CryptopayGateway) CreatePayment(ctx context.Context, txID uuid.UUID, amount vo.Money, description string) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrInvalidAmount, amount.AmountMinor())
	}

	payload := cryptopayCreateRequest{
		Amount:      fmt.Sprintf("%.2f", amount.AmountMajor()),
		Fiat:        amount.Currency(),
		Description: description,
		Payload:     txID.String(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIBase+"/createInvoice", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build create invoice request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Crypto-Pay-API-Token", g.cfg.APIToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", apperrors.ErrGatewayUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warnw("cryptopay rejected create invoice",
			"status_code", resp.StatusCode,
			"transaction_id", txID,
		)
		return nil, fmt.Errorf("%w: provider returned %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}

	var created cryptopayCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("%w: invalid create response: %v", apperrors.ErrGatewayUnavailable, err)
	}
	if !created.OK || created.Result.InvoiceID == 0 || created.Result.PayURL == "" {
		return nil, fmt.Errorf("%w: create response missing invoice data", apperrors.ErrGatewayUnavailable)
	}

	return &PaymentResult{
		ExternalID:  strconv.FormatInt(created.Result.InvoiceID, 10),
		Kind:        ResultRedirect,
		RedirectURL: created.Result.PayURL,
	}, nil
}

type cryptopayWebhook struct {
	UpdateType string `json:"update_type"`
	Payload    *struct {
		InvoiceID int64  `json:"invoice_id"`
		Status    string `json:"status"`
	} `json:"payload"`
}

func (g *CryptopayGateway) ParseWebhook(body []byte, _ http.Header) (*WebhookOutcome, error) {
	var hook cryptopayWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedPayload, err)
	}
	if hook.Payload == nil || hook.Payload.InvoiceID == 0 {
		return nil, fmt.Errorf("%w: missing 'payload.invoice_id'", apperrors.ErrMalformedPayload)
	}
	if hook.Payload.Status == "" {
		return nil, fmt.Errorf("%w: missing 'payload.status'", apperrors.ErrMalformedPayload)
	}

	var status vo.Status
	switch hook.Payload.Status {
	case "paid":
		status = vo.StatusCompleted
	case "expired":
		status = vo.StatusCanceled
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedStatus, hook.Payload.Status)
	}

	return &WebhookOutcome{
		ExternalID: strconv.FormatInt(hook.Payload.InvoiceID, 10),
		Status:     status,
	}, nil
}

func (g *CryptopayGateway) Authenticate(_ []byte, header http.Header, _ netip.Addr) error {
	return g.authenticator.Authenticate(header.Get(webhookSecretHeader))
}
