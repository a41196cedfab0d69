package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentUsecases "waveshop/internal/application/payment/usecases"
	"waveshop/internal/shared/logger"
	"waveshop/internal/shared/utils"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// BotAPI is the Bot API surface the webhook handler answers through.
type BotAPI interface {
	AnswerPreCheckoutQuery(ctx context.Context, queryID string, ok bool, errorMessage string) error
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// TelegramHandler receives Bot API updates: pre-checkout queries and
// successful payments for in-chat invoices.
type TelegramHandler struct {
	approvePreCheckoutUC *paymentUsecases.ApprovePreCheckoutUseCase
	confirmPaymentUC     *paymentUsecases.ConfirmStarsPaymentUseCase
	bot                  BotAPI
	webhookSecret        string
	allowUnsigned        bool
	logger               logger.Interface
}

func NewTelegramHandler(
	approvePreCheckoutUC *paymentUsecases.ApprovePreCheckoutUseCase,
	confirmPaymentUC *paymentUsecases.ConfirmStarsPaymentUseCase,
	bot BotAPI,
	webhookSecret string,
	allowUnsigned bool,
	log logger.Interface,
) *TelegramHandler {
	return &TelegramHandler{
		approvePreCheckoutUC: approvePreCheckoutUC,
		confirmPaymentUC:     confirmPaymentUC,
		bot:                  bot,
		webhookSecret:        webhookSecret,
		allowUnsigned:        allowUnsigned,
		logger:               log,
	}
}

type telegramUpdate struct {
	UpdateID         int64 `json:"update_id"`
	PreCheckoutQuery *struct {
		ID             string `json:"id"`
		InvoicePayload string `json:"invoice_payload"`
		Currency       string `json:"currency"`
		TotalAmount    int64  `json:"total_amount"`
	} `json:"pre_checkout_query"`
	Message *struct {
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
		SuccessfulPayment *struct {
			Currency                string `json:"currency"`
			TotalAmount             int64  `json:"total_amount"`
			InvoicePayload          string `json:"invoice_payload"`
			TelegramPaymentChargeID string `json:"telegram_payment_charge_id"`
		} `json:"successful_payment"`
	} `json:"message"`
}

// HandleUpdate processes a webhook delivery. Telegram expects 200 for every
// update it sends; anything else triggers redelivery of the whole update.
func (h *TelegramHandler) HandleUpdate(c *gin.Context) {
	if !h.verifySecret(c) {
		utils.ErrorResponse(c, http.StatusForbidden, "invalid secret token")
		return
	}

	var update telegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid update payload")
		return
	}

	ctx := c.Request.Context()

	switch {
	case update.PreCheckoutQuery != nil:
		h.handlePreCheckout(ctx, &update)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		h.handleSuccessfulPayment(ctx, &update)
	}

	// Unhandled update kinds are acknowledged and dropped.
	utils.SuccessResponse(c, http.StatusOK, "ok", nil)
}

// verifySecret fails closed: with no secret configured every update is
// rejected unless allow_unsigned is set explicitly.
func (h *TelegramHandler) verifySecret(c *gin.Context) bool {
	if h.webhookSecret == "" {
		return h.allowUnsigned
	}
	provided := c.GetHeader(telegramSecretHeader)
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.webhookSecret)) == 1
}

func (h *TelegramHandler) handlePreCheckout(ctx context.Context, update *telegramUpdate) {
	query := update.PreCheckoutQuery

	err := h.approvePreCheckoutUC.Execute(ctx, paymentUsecases.ApprovePreCheckoutCommand{
		Payload:     query.InvoicePayload,
		AmountMinor: query.TotalAmount,
		Currency:    query.Currency,
	})

	// The answer must reach Telegram within 10 seconds either way.
	if err != nil {
		h.logger.Warnw("pre-checkout rejected", "query_id", query.ID, "error", err)
		if answerErr := h.bot.AnswerPreCheckoutQuery(ctx, query.ID, false, "payment can no longer be processed"); answerErr != nil {
			h.logger.Errorw("failed to answer pre-checkout query", "query_id", query.ID, "error", answerErr)
		}
		return
	}

	if answerErr := h.bot.AnswerPreCheckoutQuery(ctx, query.ID, true, ""); answerErr != nil {
		h.logger.Errorw("failed to answer pre-checkout query", "query_id", query.ID, "error", answerErr)
	}
}

func (h *TelegramHandler) handleSuccessfulPayment(ctx context.Context, update *telegramUpdate) {
	payment := update.Message.SuccessfulPayment

	result, err := h.confirmPaymentUC.Execute(ctx, paymentUsecases.ConfirmStarsPaymentCommand{
		Payload:     payment.InvoicePayload,
		ChargeID:    payment.TelegramPaymentChargeID,
		AmountMinor: payment.TotalAmount,
		Currency:    payment.Currency,
	})
	if err != nil {
		// Still acknowledged: Telegram redelivery cannot fix a payment we
		// cannot match, and matched-but-failed extensions are reconciled
		// out of band.
		h.logger.Errorw("failed to confirm in-chat payment",
			"charge_id", payment.TelegramPaymentChargeID,
			"error", err,
		)
		return
	}

	if !result.Duplicate {
		if sendErr := h.bot.SendMessage(ctx, update.Message.Chat.ID, "Payment received, your subscription is extended."); sendErr != nil {
			h.logger.Warnw("failed to send payment confirmation message", "error", sendErr)
		}
	}
}
