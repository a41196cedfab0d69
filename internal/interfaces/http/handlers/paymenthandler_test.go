package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waveshop/internal/application/payment/gateway"
	"waveshop/internal/application/payment/ledger"
	paymentUsecases "waveshop/internal/application/payment/usecases"
	"waveshop/internal/domain/transaction"
	vo "waveshop/internal/domain/transaction/valueobjects"
	sharedConfig "waveshop/internal/shared/config"
	"waveshop/internal/shared/logger"
)

type passthroughStore struct{}

func (passthroughStore) Decrypt(ciphertext string) (string, error) {
	return ciphertext, nil
}

// setupWebhookEngine mirrors the server wiring: no trusted proxies unless
// configured, so X-Forwarded-For from an arbitrary peer is ignored.
func setupWebhookEngine(t *testing.T, trustedProxies []string) (*gin.Engine, *stubTransactionRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLogger()
	repo := newStubTransactionRepo()

	factory, err := gateway.NewFactory([]sharedConfig.GatewayConfig{
		{Type: "yookassa", Enabled: true, Currency: "RUB", ShopID: "shop-1", Credentials: "secret"},
	}, &gateway.FactoryDeps{
		Secrets: passthroughStore{},
		Logger:  log,
	})
	require.NoError(t, err)

	l := ledger.New(repo, &stubExtender{}, log)
	handler := NewPaymentHandler(
		nil,
		paymentUsecases.NewHandleWebhookUseCase(factory, l, log),
		log,
	)

	engine := gin.New()
	require.NoError(t, engine.SetTrustedProxies(trustedProxies))
	engine.POST("/payments/callback/:gateway", handler.HandleWebhook)
	return engine, repo
}

func seedPendingYookassaTransaction(t *testing.T, repo *stubTransactionRepo) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewTransaction(42, vo.GatewayYookassa, vo.NewMoney(49900, "RUB"), 7, 30)
	require.NoError(t, err)
	require.NoError(t, tx.AttachProviderRef("yk-pay-1"))
	require.NoError(t, repo.Create(context.Background(), tx))
	return tx
}

func postCallback(engine *gin.Engine, remoteAddr, forwardedFor, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/callback/yookassa", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = remoteAddr
	if forwardedFor != "" {
		req.Header.Set("X-Forwarded-For", forwardedFor)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

const succeededCallback = `{"object":{"id":"yk-pay-1","status":"succeeded"}}`

func TestHandleWebhookAcceptsAllowlistedPeer(t *testing.T) {
	engine, repo := setupWebhookEngine(t, nil)
	tx := seedPendingYookassaTransaction(t, repo)

	w := postCallback(engine, "185.71.76.10:443", "", succeededCallback)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.GetByID(context.Background(), tx.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCompleted, stored.Status())
}

func TestHandleWebhookIgnoresSpoofedForwardedFor(t *testing.T) {
	// The TCP peer is outside the allowlist; a forged X-Forwarded-For
	// carrying an allowlisted address must not be believed.
	engine, repo := setupWebhookEngine(t, nil)
	tx := seedPendingYookassaTransaction(t, repo)

	w := postCallback(engine, "203.0.113.5:4567", "185.71.76.10", succeededCallback)
	assert.Equal(t, http.StatusForbidden, w.Code)

	stored, err := repo.GetByID(context.Background(), tx.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPending, stored.Status())
}

func TestHandleWebhookHonorsConfiguredProxy(t *testing.T) {
	// A request relayed by a trusted proxy uses the forwarded address.
	engine, repo := setupWebhookEngine(t, []string{"10.0.0.0/8"})
	tx := seedPendingYookassaTransaction(t, repo)

	w := postCallback(engine, "10.1.2.3:4567", "185.71.76.10", succeededCallback)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.GetByID(context.Background(), tx.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCompleted, stored.Status())
}

func TestHandleWebhookResolvedRowAcknowledgedAsDuplicate(t *testing.T) {
	engine, repo := setupWebhookEngine(t, nil)
	tx := seedPendingYookassaTransaction(t, repo)

	// Resolve the transaction as failed out of band, then redeliver: the
	// terminal row is acknowledged without another transition.
	require.NoError(t, tx.Fail("amount mismatch: expected 49900, got 100"))
	require.NoError(t, repo.Update(context.Background(), tx))

	w := postCallback(engine, "185.71.76.10:443", "", succeededCallback)
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.GetByID(context.Background(), tx.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusFailed, stored.Status())
}
