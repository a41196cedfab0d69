package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

func newCryptopayForTest(t *testing.T, apiBase, webhookSecret string, allowUnsigned bool) *CryptopayGateway {
	t.Helper()
	gw, err := NewCryptopayGateway(CryptopayConfig{
		APIToken:      "cp-token",
		Currency:      "RUB",
		APIBase:       apiBase,
		WebhookSecret: webhookSecret,
		AllowUnsigned: allowUnsigned,
	}, http.DefaultClient, logger.NewLogger())
	require.NoError(t, err)
	return gw
}

func TestCryptopayCreatePayment(t *testing.T) {
	txID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/createInvoice", r.URL.Path)
		assert.Equal(t, "cp-token", r.Header.Get("Crypto-Pay-API-Token"))

		var req cryptopayCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "499.00", req.Amount)
		assert.Equal(t, txID.String(), req.Payload)

		json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
			"result": map[string]any{
				"invoice_id": 12345,
				"pay_url":    "https://pay.crypt.example/12345",
			},
		})
	}))
	defer srv.Close()

	gw := newCryptopayForTest(t, srv.URL, "hook-secret", false)

	result, err := gw.CreatePayment(context.Background(), txID, vo.NewMoney(49900, "RUB"), "Premium")
	require.NoError(t, err)

	assert.Equal(t, "12345", result.ExternalID)
	assert.Equal(t, ResultRedirect, result.Kind)
	assert.Equal(t, "https://pay.crypt.example/12345", result.RedirectURL)
}

func TestCryptopayCreatePaymentNotOK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	gw := newCryptopayForTest(t, srv.URL, "hook-secret", false)
	_, err := gw.CreatePayment(context.Background(), uuid.New(), vo.NewMoney(100, "RUB"), "")
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
}

func TestCryptopayParseWebhook(t *testing.T) {
	gw := newCryptopayForTest(t, "http://unused", "hook-secret", false)

	outcome, err := gw.ParseWebhook([]byte(`{"update_type":"invoice_paid","payload":{"invoice_id":12345,"status":"paid"}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "12345", outcome.ExternalID)
	assert.Equal(t, vo.StatusCompleted, outcome.Status)

	outcome, err = gw.ParseWebhook([]byte(`{"payload":{"invoice_id":7,"status":"expired"}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, outcome.Status)

	_, err = gw.ParseWebhook([]byte(`{"payload":{"invoice_id":7,"status":"active"}}`), nil)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedStatus)

	_, err = gw.ParseWebhook([]byte(`{"payload":{"status":"paid"}}`), nil)
	assert.ErrorIs(t, err, apperrors.ErrMalformedPayload)
}

func TestCryptopayAuthenticate(t *testing.T) {
	gw := newCryptopayForTest(t, "http://unused", "hook-secret", false)

	header := http.Header{}
	header.Set(webhookSecretHeader, "hook-secret")
	assert.NoError(t, gw.Authenticate(nil, header, netip.Addr{}))

	header.Set(webhookSecretHeader, "wrong")
	assert.ErrorIs(t, gw.Authenticate(nil, header, netip.Addr{}), apperrors.ErrAuthenticationFailed)

	assert.ErrorIs(t, gw.Authenticate(nil, http.Header{}, netip.Addr{}), apperrors.ErrAuthenticationFailed)
}

func TestCryptopayAuthenticateNoSecretFailsClosed(t *testing.T) {
	gw := newCryptopayForTest(t, "http://unused", "", false)

	header := http.Header{}
	header.Set(webhookSecretHeader, "anything")
	assert.ErrorIs(t, gw.Authenticate(nil, header, netip.Addr{}), apperrors.ErrAuthenticationFailed)
	assert.ErrorIs(t, gw.Authenticate(nil, http.Header{}, netip.Addr{}), apperrors.ErrAuthenticationFailed)
}

func TestCryptopayAuthenticateAllowUnsigned(t *testing.T) {
	gw := newCryptopayForTest(t, "http://unused", "", true)
	assert.NoError(t, gw.Authenticate(nil, http.Header{}, netip.Addr{}))
}
