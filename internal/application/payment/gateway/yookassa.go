package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"

	"github.com/google/uuid"

	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

const yookassaAPIBase = "https://api.yookassa.ru/v3"

// yookassaTrustedNetworks are the notification source ranges YooKassa
// publishes. The security boundary for this provider is network origin,
// not a signature.
var yookassaTrustedNetworks = []string{
	"185.71.76.0/27",
	"185.71.77.0/27",
	"77.75.153.0/25",
	"77.75.156.11/32",
	"77.75.156.35/32",
	"77.75.154.128/25",
	"2a02:5180::/32",
}

type YookassaConfig struct {
	ShopID    string
	SecretKey string
	Currency  string
	ReturnURL string
	// TrustedNetworks overrides the published ranges when set.
	TrustedNetworks []string
	APIBase         string
}

// YookassaGateway is the redirect-checkout variant: CreatePayment builds a
// provider order and returns its hosted checkout URL.
type YookassaGateway struct {
	cfg           YookassaConfig
	httpClient    *http.Client
	authenticator *IPAllowlistAuthenticator
	logger        logger.Interface
}

var _ PaymentGateway = (*YookassaGateway)(nil)

func NewYookassaGateway(cfg YookassaConfig, httpClient *http.Client, log logger.Interface) (*YookassaGateway, error) {
	if cfg.ShopID == "" || cfg.SecretKey == "" {
		return nil, apperrors.NewConfigurationError("yookassa credentials missing")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = yookassaAPIBase
	}

	networks := cfg.TrustedNetworks
	if len(networks) == 0 {
		networks = yookassaTrustedNetworks
	}
	authenticator, err := NewIPAllowlistAuthenticator(networks)
	if err != nil {
		return nil, err
	}

	return &YookassaGateway{
		cfg:           cfg,
		httpClient:    httpClient,
		authenticator: authenticator,
		logger:        log,
	}, nil
}

func (g *YookassaGateway) Type() vo.GatewayType {
	return vo.GatewayYookassa
}

type yookassaCreateRequest struct {
	Amount       yookassaAmount       `json:"amount"`
	Capture      bool                 `json:"capture"`
	Confirmation yookassaConfirmation `json:"confirmation"`
	Description  string               `json:"description,omitempty"`
	Metadata     map[string]string    `json:"metadata,omitempty"`
}

type yookassaAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yookassaConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type yookassaCreateResponse struct {
	ID           string               `json:"id"`
	Confirmation yookassaConfirmation `json:"confirmation"`
}

func (g *YookassaGateway) CreatePayment(ctx context.Context, txID uuid.UUID, amount vo.Money, description string) (*PaymentResult, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: %d", apperrors.ErrInvalidAmount, amount.AmountMinor())
	}

	payload := yookassaCreateRequest{
		Amount: yookassaAmount{
			Value:    fmt.Sprintf("%.2f", amount.AmountMajor()),
			Currency: amount.Currency(),
		},
		Capture: true,
		Confirmation: yookassaConfirmation{
			Type:      "redirect",
			ReturnURL: g.cfg.ReturnURL,
		},
		Description: description,
		Metadata:    map[string]string{"transaction_id": txID.String()},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.APIBase+"/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build create payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(g.cfg.ShopID, g.cfg.SecretKey)

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
		g.logger.Warnw("yookassa rejected create payment",
			"status_code", resp.StatusCode,
			"transaction_id", txID,
		)
		return nil, fmt.Errorf("%w: provider returned %d", apperrors.ErrGatewayUnavailable, resp.StatusCode)
	}

	var created yookassaCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("%w: invalid create response: %v", apperrors.ErrGatewayUnavailable, err)
	}
	if created.ID == "" {
		return nil, fmt.Errorf("%w: create response missing 'id'", apperrors.ErrGatewayUnavailable)
	}
	if created.Confirmation.ConfirmationURL == "" {
		return nil, fmt.Errorf("%w: create response missing 'confirmation_url'", apperrors.ErrGatewayUnavailable)
	}

	return &PaymentResult{
		ExternalID:  created.ID,
		Kind:        ResultRedirect,
		RedirectURL: created.Confirmation.ConfirmationURL,
	}, nil
}

type yookassaWebhook struct {
	Object *yookassaWebhookObject `json:"object"`
}

type yookassaWebhookObject struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (g *YookassaGateway) ParseWebhook(body []byte, _ http.Header) (*WebhookOutcome, error) {
	var hook yookassaWebhook
	if err := json.Unmarshal(body, &hook); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedPayload, err)
	}
	if hook.Object == nil || hook.Object.ID == "" {
		return nil, fmt.Errorf("%w: missing 'object.id'", apperrors.ErrMalformedPayload)
	}
	if hook.Object.Status == "" {
		return nil, fmt.Errorf("%w: missing 'object.status'", apperrors.ErrMalformedPayload)
	}

	var status vo.Status
	switch hook.Object.Status {
	case "succeeded":
		status = vo.StatusCompleted
	case "canceled":
		status = vo.StatusCanceled
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnsupportedStatus, hook.Object.Status)
	}

	return &WebhookOutcome{
		ExternalID: hook.Object.ID,
		Status:     status,
	}, nil
}

func (g *YookassaGateway) Authenticate(_ []byte, _ http.Header, sourceIP netip.Addr) error {
	return g.authenticator.Authenticate(sourceIP)
}
