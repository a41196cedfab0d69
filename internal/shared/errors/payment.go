package errors

import (
	"errors"
	"fmt"
)

// Payment-domain sentinels. Gateway variants and the ledger wrap these with
// %w so callers can branch with errors.Is.
var (
	// ErrInvalidAmount is returned by CreatePayment for amounts <= 0.
	ErrInvalidAmount = errors.New("payment amount must be positive")

	// ErrGatewayUnavailable covers network or provider-side failures on
	// outbound calls. The caller may retry before a redirect URL was issued.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrMalformedPayload is returned when a webhook body is missing
	// required fields or is not valid JSON.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrUnsupportedStatus is returned when a provider reports a status
	// outside the known set. Hard failure, never mapped to pending.
	ErrUnsupportedStatus = errors.New("unsupported provider status")

	// ErrWebhookNotSupported is returned by gateways that have no HTTP
	// webhook surface. Confirmation arrives through the platform update
	// channel instead.
	ErrWebhookNotSupported = errors.New("gateway has no webhook surface")

	// ErrAuthenticationFailed is returned when a webhook's origin cannot be
	// trusted. Rejected before any parsing, never mutates ledger state.
	ErrAuthenticationFailed = errors.New("webhook authentication failed")

	// ErrUnknownTransaction is returned when a callback references a
	// transaction the ledger never created.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrGatewayDisabled is returned by the factory for disabled gateways.
	ErrGatewayDisabled = errors.New("payment gateway disabled")

	// ErrAmountMismatch is returned when a provider reports an amount that
	// disagrees with the transaction. The transaction is marked failed
	// before the error is surfaced, so the mismatch needs reconciliation
	// rather than redelivery.
	ErrAmountMismatch = errors.New("callback amount mismatch")
)

// ExtensionError reports a failed subscription extension after a transaction
// already transitioned to completed. The transition is durable; the error is
// surfaced so a reconciliation job can retry the extension.
type ExtensionError struct {
	TransactionID string
	Err           error
}

func (e *ExtensionError) Error() string {
	return fmt.Sprintf("subscription extension failed for transaction %s: %v", e.TransactionID, e.Err)
}

func (e *ExtensionError) Unwrap() error {
	return e.Err
}

// IsExtensionError checks whether err wraps an ExtensionError.
func IsExtensionError(err error) bool {
	var extErr *ExtensionError
	return errors.As(err, &extErr)
}
