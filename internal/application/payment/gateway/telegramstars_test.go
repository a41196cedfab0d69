package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "waveshop/internal/domain/transaction/valueobjects"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
)

type fakeInvoiceCreator struct {
	link     string
	err      error
	payload  string
	currency string
	amount   int64
}

func (f *fakeInvoiceCreator) CreateInvoiceLink(_ context.Context, _, _, payload, currency string, amount int64) (string, error) {
	f.payload = payload
	f.currency = currency
	f.amount = amount
	if f.err != nil {
		return "", f.err
	}
	return f.link, nil
}

func TestStarsCreatePayment(t *testing.T) {
	bot := &fakeInvoiceCreator{link: "https://t.me/invoice/abc"}
	gw, err := NewStarsGateway(StarsConfig{}, bot, logger.NewLogger())
	require.NoError(t, err)

	txID := uuid.New()
	result, err := gw.CreatePayment(context.Background(), txID, vo.NewMoney(150, "XTR"), "Premium, 30 days")
	require.NoError(t, err)

	assert.Equal(t, ResultInvoice, result.Kind)
	assert.Equal(t, "https://t.me/invoice/abc", result.InvoiceHandle)
	assert.Empty(t, result.ExternalID, "provider id is only known at confirmation")
	assert.Empty(t, result.RedirectURL)

	// The payload must carry the transaction id so the confirmation update
	// can be matched back.
	assert.Equal(t, txID.String(), bot.payload)
	assert.Equal(t, "XTR", bot.currency)
	assert.Equal(t, int64(150), bot.amount)
}

func TestStarsCreatePaymentBotFailure(t *testing.T) {
	bot := &fakeInvoiceCreator{err: errors.New("bot api down")}
	gw, err := NewStarsGateway(StarsConfig{}, bot, logger.NewLogger())
	require.NoError(t, err)

	_, err = gw.CreatePayment(context.Background(), uuid.New(), vo.NewMoney(150, "XTR"), "")
	assert.ErrorIs(t, err, apperrors.ErrGatewayUnavailable)
}

func TestStarsHasNoWebhook(t *testing.T) {
	gw, err := NewStarsGateway(StarsConfig{}, &fakeInvoiceCreator{}, logger.NewLogger())
	require.NoError(t, err)

	_, parseErr := gw.ParseWebhook([]byte(`{}`), http.Header{})
	assert.ErrorIs(t, parseErr, apperrors.ErrWebhookNotSupported)

	authErr := gw.Authenticate(nil, http.Header{}, netip.MustParseAddr("127.0.0.1"))
	assert.ErrorIs(t, authErr, apperrors.ErrWebhookNotSupported)
}

func TestStarsRequiresBot(t *testing.T) {
	_, err := NewStarsGateway(StarsConfig{}, nil, logger.NewLogger())
	assert.True(t, apperrors.IsConfigurationError(err))
}
