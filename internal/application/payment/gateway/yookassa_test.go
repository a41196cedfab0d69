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

func newYookassaForTest(t *testing.T, apiBase string) *YookassaGateway {
	t.Helper()
	gw, err := NewYookassaGateway(YookassaConfig{
		ShopID:    "shop-1",
		SecretKey: "secret",
		Currency:  "RUB",
		ReturnURL: "https://t.me/waveshop_bot",
		APIBase:   apiBase,
	}, http.DefaultClient, logger.NewLogger())
	require.NoError(t, err)
	return gw
}

func TestYookassaCreatePayment(t *testing.T) {
	txID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payments", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "shop-1", user)
		assert.Equal(t, "secret", pass)

		var req yookassaCreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "499.00", req.Amount.Value)
		assert.Equal(t, "RUB", req.Amount.Currency)
		assert.Equal(t, txID.String(), req.Metadata["transaction_id"])
		assert.Equal(t, "redirect", req.Confirmation.Type)

		json.NewEncoder(w).Encode(map[string]any{
			"id": "yk-pay-1",
			"confirmation": map[string]any{
				"type":             "redirect",
				"confirmation_url": "https://yoomoney.example/confirm/yk-pay-1",
			},
		})
	}))
	defer srv.Close()

	gw := newYookassaForTest(t, srv.URL)

	result, err := gw.CreatePayment(context.Background(), txID, vo.NewMoney(49900, "RUB"), "Premium, 30 days")
	require.NoError(t, err)

	assert.Equal(t, "yk-pay-1", result.ExternalID)
	assert.Equal(t, ResultRedirect, result.Kind)
	assert.Equal(t, "https://yoomoney.example/confirm/yk-pay-1", result.RedirectURL)
}

func TestYookassaCreatePaymentIncompleteResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"confirmation":{"confirmation_url":"https://x"}}`},
		{"missing confirmation url", `{"id":"yk-1","confirmation":{"type":"redirect"}}`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			gw := newYookassaForTest(t, srv.URL)
			_, err := gw.CreatePayment(context.Background(), uuid.New(), vo.NewMoney(100, "RUB"), "")
			assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
		})
	}
}

func TestYookassaCreatePaymentProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	gw := newYookassaForTest(t, srv.URL)
	_, err := gw.CreatePayment(context.Background(), uuid.New(), vo.NewMoney(100, "RUB"), "")
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
}

func TestYookassaCreatePaymentRejectsNonPositiveAmount(t *testing.T) {
	gw := newYookassaForTest(t, "http://unused")
	_, err := gw.CreatePayment(context.Background(), uuid.New(), vo.NewMoney(0, "RUB"), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestYookassaParseWebhook(t *testing.T) {
	gw := newYookassaForTest(t, "http://unused")

	outcome, err := gw.ParseWebhook([]byte(`{"object":{"id":"yk-1","status":"succeeded"}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, "yk-1", outcome.ExternalID)
	assert.Equal(t, vo.StatusCompleted, outcome.Status)

	outcome, err = gw.ParseWebhook([]byte(`{"object":{"id":"yk-2","status":"canceled"}}`), nil)
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCanceled, outcome.Status)
}

func TestYookassaParseWebhookUnsupportedStatus(t *testing.T) {
	gw := newYookassaForTest(t, "http://unused")

	// Statuses outside the accepted pair must hard-fail, never be guessed at.
	for _, status := range []string{"refunded", "waiting_for_capture", "pending"} {
		_, err := gw.ParseWebhook([]byte(`{"object":{"id":"yk-1","status":"`+status+`"}}`), nil)
		assert.ErrorIs(t, err, apperrors.ErrUnsupportedStatus, status)
	}
}

func TestYookassaParseWebhookMalformed(t *testing.T) {
	gw := newYookassaForTest(t, "http://unused")

	for _, body := range []string{
		`not json`,
		`{}`,
		`{"object":{}}`,
		`{"object":{"id":"yk-1"}}`,
		`{"object":{"status":"succeeded"}}`,
	} {
		_, err := gw.ParseWebhook([]byte(body), nil)
		assert.ErrorIs(t, err, apperrors.ErrMalformedPayload, body)
	}
}

func TestYookassaAuthenticateByNetworkOrigin(t *testing.T) {
	gw := newYookassaForTest(t, "http://unused")

	// Inside the published ranges.
	assert.NoError(t, gw.Authenticate(nil, nil, netip.MustParseAddr("185.71.76.5")))
	assert.NoError(t, gw.Authenticate(nil, nil, netip.MustParseAddr("77.75.156.11")))
	assert.NoError(t, gw.Authenticate(nil, nil, netip.MustParseAddr("2a02:5180::1")))

	// Outside.
	err := gw.Authenticate(nil, nil, netip.MustParseAddr("203.0.113.9"))
	assert.ErrorIs(t, err, apperrors.ErrAuthenticationFailed)

	err = gw.Authenticate(nil, nil, netip.Addr{})
	assert.ErrorIs(t, err, apperrors.ErrAuthenticationFailed)
}

func TestYookassaAuthenticateCustomNetworks(t *testing.T) {
	gw, err := NewYookassaGateway(YookassaConfig{
		ShopID:          "shop-1",
		SecretKey:       "secret",
		TrustedNetworks: []string{"10.0.0.0/8"},
	}, http.DefaultClient, logger.NewLogger())
	require.NoError(t, err)

	assert.NoError(t, gw.Authenticate(nil, nil, netip.MustParseAddr("10.1.2.3")))
	assert.Error(t, gw.Authenticate(nil, nil, netip.MustParseAddr("185.71.76.5")))
}
