package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/netip"

	"github.com/gin-gonic/gin"

	paymentUsecases "waveshop/internal/application/payment/usecases"
	apperrors "waveshop/internal/shared/errors"
	"waveshop/internal/shared/logger"
	"waveshop/internal/shared/utils"
)

type PaymentHandler struct {
	initiatePaymentUC *paymentUsecases.InitiatePaymentUseCase
	handleWebhookUC   *paymentUsecases.HandleWebhookUseCase
	logger            logger.Interface
}

func NewPaymentHandler(
	initiatePaymentUC *paymentUsecases.InitiatePaymentUseCase,
	handleWebhookUC *paymentUsecases.HandleWebhookUseCase,
	log logger.Interface,
) *PaymentHandler {
	return &PaymentHandler{
		initiatePaymentUC: initiatePaymentUC,
		handleWebhookUC:   handleWebhookUC,
		logger:            log,
	}
}

type InitiatePaymentRequest struct {
	UserID       uint   `json:"user_id" binding:"required"`
	Gateway      string `json:"gateway" binding:"required,oneof=yookassa telegram_stars cryptopay"`
	AmountMinor  int64  `json:"amount_minor" binding:"required,gt=0"`
	Currency     string `json:"currency"`
	PlanID       uint   `json:"plan_id" binding:"required"`
	DurationDays int    `json:"duration_days" binding:"required,gt=0"`
	Description  string `json:"description"`
}

type InitiatePaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	Kind          string `json:"kind"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	InvoiceHandle string `json:"invoice_handle,omitempty"`
}

func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.initiatePaymentUC.Execute(c.Request.Context(), paymentUsecases.InitiatePaymentCommand{
		UserID:       req.UserID,
		GatewayType:  req.Gateway,
		AmountMinor:  req.AmountMinor,
		Currency:     req.Currency,
		PlanID:       req.PlanID,
		DurationDays: req.DurationDays,
		Description:  req.Description,
	})
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "payment initiated", InitiatePaymentResponse{
		TransactionID: result.TransactionID.String(),
		Kind:          string(result.Kind),
		RedirectURL:   result.RedirectURL,
		InvoiceHandle: result.InvoiceHandle,
	})
}

type WebhookResponse struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Duplicate     bool   `json:"duplicate"`
}

// HandleWebhook receives provider callbacks on /payments/callback/:gateway.
func (h *PaymentHandler) HandleWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "failed to read request body")
		return
	}

	sourceIP, err := netip.ParseAddr(c.ClientIP())
	if err != nil {
		h.logger.Warnw("webhook with unparseable client ip", "client_ip", c.ClientIP())
		utils.ErrorResponse(c, http.StatusForbidden, "invalid source address")
		return
	}

	result, err := h.handleWebhookUC.Execute(c.Request.Context(), paymentUsecases.HandleWebhookCommand{
		GatewayType: c.Param("gateway"),
		Body:        body,
		Header:      c.Request.Header,
		SourceIP:    sourceIP,
	})
	if err != nil {
		h.respondWebhookError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "callback processed", WebhookResponse{
		TransactionID: result.TransactionID.String(),
		Status:        result.Status.String(),
		Duplicate:     result.Duplicate,
	})
}

func (h *PaymentHandler) respondPaymentError(c *gin.Context, err error) {
	switch {
	case apperrors.IsAppError(err):
		utils.ErrorResponseWithError(c, err)
	case errors.Is(err, apperrors.ErrGatewayUnavailable):
		utils.ErrorResponse(c, http.StatusBadGateway, "payment provider unavailable")
	case errors.Is(err, apperrors.ErrInvalidAmount):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorw("payment initiation failed", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to initiate payment")
	}
}

func (h *PaymentHandler) respondWebhookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrAuthenticationFailed), errors.Is(err, apperrors.ErrWebhookNotSupported):
		utils.ErrorResponse(c, http.StatusForbidden, "callback rejected")
	case errors.Is(err, apperrors.ErrUnknownTransaction):
		utils.ErrorResponse(c, http.StatusNotFound, "unknown transaction")
	case errors.Is(err, apperrors.ErrMalformedPayload), errors.Is(err, apperrors.ErrUnsupportedStatus),
		errors.Is(err, apperrors.ErrAmountMismatch):
		utils.ErrorResponse(c, http.StatusBadRequest, err.Error())
	case apperrors.IsExtensionError(err):
		// The payment is recorded; the provider must not retry. Reconciliation
		// picks the extension up from the logs.
		h.logger.Errorw("extension failed after completed payment", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "payment recorded, fulfillment delayed")
	case apperrors.IsAppError(err):
		utils.ErrorResponseWithError(c, err)
	default:
		h.logger.Errorw("webhook processing failed", "error", err)
		utils.ErrorResponse(c, http.StatusInternalServerError, "failed to process callback")
	}
}
