package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waveshop/internal/application/payment/ledger"
	paymentUsecases "waveshop/internal/application/payment/usecases"
	"waveshop/internal/domain/transaction"
	vo "waveshop/internal/domain/transaction/valueobjects"
	"waveshop/internal/shared/logger"
)

type stubTransactionRepo struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*transaction.Transaction
}

func newStubTransactionRepo() *stubTransactionRepo {
	return &stubTransactionRepo{txs: make(map[uuid.UUID]*transaction.Transaction)}
}

func (r *stubTransactionRepo) Create(_ context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.ID()] = tx
	return nil
}

func (r *stubTransactionRepo) Update(_ context.Context, tx *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs[tx.ID()] = tx
	return nil
}

func (r *stubTransactionRepo) GetByID(_ context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, transaction.ErrNotFound
	}
	return tx, nil
}

func (r *stubTransactionRepo) GetByExternalID(_ context.Context, externalID string) (*transaction.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.ExternalID() != nil && *tx.ExternalID() == externalID {
			return tx, nil
		}
	}
	return nil, transaction.ErrNotFound
}

func (r *stubTransactionRepo) GetPendingOlderThan(_ context.Context, _ time.Time) ([]*transaction.Transaction, error) {
	return nil, nil
}

type stubExtender struct {
	mu    sync.Mutex
	calls int
}

func (e *stubExtender) Extend(_ context.Context, _, _ uint, _ int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	return nil
}

type recordingBot struct {
	mu        sync.Mutex
	answers   []bool
	messages  []string
	answerErr error
}

func (b *recordingBot) AnswerPreCheckoutQuery(_ context.Context, _ string, ok bool, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers = append(b.answers, ok)
	return b.answerErr
}

func (b *recordingBot) SendMessage(_ context.Context, _ int64, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, text)
	return nil
}

func setupTelegramHandler(t *testing.T, secret string, allowUnsigned bool) (*gin.Engine, *stubTransactionRepo, *recordingBot) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLogger()
	repo := newStubTransactionRepo()
	bot := &recordingBot{}

	l := ledger.New(repo, &stubExtender{}, log)
	handler := NewTelegramHandler(
		paymentUsecases.NewApprovePreCheckoutUseCase(repo, log),
		paymentUsecases.NewConfirmStarsPaymentUseCase(l, log),
		bot,
		secret,
		allowUnsigned,
		log,
	)

	engine := gin.New()
	engine.POST("/telegram/webhook", handler.HandleUpdate)
	return engine, repo, bot
}

func seedPendingStarsTransaction(t *testing.T, repo *stubTransactionRepo) *transaction.Transaction {
	t.Helper()
	tx, err := transaction.NewTransaction(100500, vo.GatewayTelegramStars, vo.NewMoney(150, "XTR"), 7, 30)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), tx))
	return tx
}

func postUpdate(engine *gin.Engine, body string, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set("X-Telegram-Bot-Api-Secret-Token", secret)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHandleUpdateRejectsBadSecret(t *testing.T) {
	engine, _, _ := setupTelegramHandler(t, "top-secret", false)

	w := postUpdate(engine, `{"update_id":1}`, "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postUpdate(engine, `{"update_id":1}`, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postUpdate(engine, `{"update_id":1}`, "top-secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleUpdateFailsClosedWithoutSecret(t *testing.T) {
	// An empty configured secret rejects everything unless unsigned updates
	// are explicitly allowed; a forged successful_payment must not get in.
	engine, repo, bot := setupTelegramHandler(t, "", false)
	tx := seedPendingStarsTransaction(t, repo)

	body := fmt.Sprintf(`{"update_id":7,"message":{"chat":{"id":100500},"successful_payment":{"currency":"XTR","total_amount":150,"invoice_payload":%q,"telegram_payment_charge_id":"forged-charge"}}}`, tx.ID())
	w := postUpdate(engine, body, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = postUpdate(engine, body, "anything")
	assert.Equal(t, http.StatusForbidden, w.Code)

	stored, err := repo.GetByID(context.Background(), tx.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusPending, stored.Status())
	assert.Empty(t, bot.messages)
}

func TestHandleUpdatePreCheckoutApproved(t *testing.T) {
	engine, repo, bot := setupTelegramHandler(t, "", true)
	tx := seedPendingStarsTransaction(t, repo)

	body := fmt.Sprintf(`{"update_id":2,"pre_checkout_query":{"id":"q-1","invoice_payload":%q,"currency":"XTR","total_amount":150}}`, tx.ID())
	w := postUpdate(engine, body, "")

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, bot.answers, 1)
	assert.True(t, bot.answers[0])
}

func TestHandleUpdatePreCheckoutRejectedForUnknownPayload(t *testing.T) {
	engine, _, bot := setupTelegramHandler(t, "", true)

	body := `{"update_id":3,"pre_checkout_query":{"id":"q-2","invoice_payload":"not-a-transaction","currency":"XTR","total_amount":150}}`
	w := postUpdate(engine, body, "")

	// Telegram still gets a 200; the rejection travels in the answer.
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, bot.answers, 1)
	assert.False(t, bot.answers[0])
}

func TestHandleUpdateSuccessfulPayment(t *testing.T) {
	engine, repo, bot := setupTelegramHandler(t, "", true)
	tx := seedPendingStarsTransaction(t, repo)

	body := fmt.Sprintf(`{"update_id":4,"message":{"chat":{"id":100500},"successful_payment":{"currency":"XTR","total_amount":150,"invoice_payload":%q,"telegram_payment_charge_id":"stars-charge-1"}}}`, tx.ID())
	w := postUpdate(engine, body, "")
	assert.Equal(t, http.StatusOK, w.Code)

	stored, err := repo.GetByID(context.Background(), tx.ID())
	require.NoError(t, err)
	assert.Equal(t, vo.StatusCompleted, stored.Status())
	require.NotNil(t, stored.ExternalID())
	assert.Equal(t, "stars-charge-1", *stored.ExternalID())
	require.Len(t, bot.messages, 1)

	// Redelivery is acknowledged without a second user-facing message.
	w = postUpdate(engine, body, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, bot.messages, 1)
}

func TestHandleUpdateUnmatchedPaymentStillAcknowledged(t *testing.T) {
	engine, _, bot := setupTelegramHandler(t, "", true)

	body := `{"update_id":5,"message":{"chat":{"id":1},"successful_payment":{"currency":"XTR","total_amount":150,"invoice_payload":"garbage","telegram_payment_charge_id":"stars-charge-2"}}}`
	w := postUpdate(engine, body, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, bot.messages)
}

func TestHandleUpdateIgnoresOtherUpdateKinds(t *testing.T) {
	engine, _, bot := setupTelegramHandler(t, "", true)

	w := postUpdate(engine, `{"update_id":6,"message":{"chat":{"id":1}}}`, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, bot.messages)
	assert.Empty(t, bot.answers)
}
