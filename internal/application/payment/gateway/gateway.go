// Package gateway defines the polymorphic payment-gateway contract and its
// provider-specific variants. A variant implements the three operations
// below; no other component changes when a provider is added.
package gateway

import (
	"context"
	"net/http"
	"net/netip"

	"github.com/google/uuid"

	vo "waveshop/internal/domain/transaction/valueobjects"
)

// ResultKind discriminates how the user completes the payment.
type ResultKind string

const (
	// ResultRedirect means the user follows a hosted checkout URL.
	ResultRedirect ResultKind = "redirect"
	// ResultInvoice means the user pays an in-chat invoice.
	ResultInvoice ResultKind = "invoice"
)

// PaymentResult is the outcome of creating a payment at a provider.
// RedirectURL and InvoiceHandle are distinct fields rather than one
// overloaded string; exactly one of them is set, per Kind.
type PaymentResult struct {
	// ExternalID is the provider's own id for the created payment, empty
	// for providers that only report it at confirmation time.
	ExternalID    string
	Kind          ResultKind
	RedirectURL   string
	InvoiceHandle string
}

// WebhookOutcome is the canonical result of parsing a provider callback.
type WebhookOutcome struct {
	// ExternalID is the provider's id for the payment.
	ExternalID string
	// Reference overrides the ledger lookup key when the confirmation
	// channel echoes our own transaction UUID (in-chat invoice payloads)
	// instead of the provider id. Empty means look up by ExternalID.
	Reference string
	Status    vo.Status
	// AmountMinor is an optional cross-check; zero when the provider does
	// not report an amount.
	AmountMinor int64
}

// PaymentGateway is the uniform create/confirm contract every provider
// integration implements.
type PaymentGateway interface {
	Type() vo.GatewayType

	// CreatePayment creates a payment at the provider. txID is the ledger's
	// transaction id; variants thread it through provider metadata or
	// invoice payloads so confirmations can be reconciled.
	// Fails with errors.ErrInvalidAmount for amounts <= 0 and wraps
	// errors.ErrGatewayUnavailable on network or provider failure.
	CreatePayment(ctx context.Context, txID uuid.UUID, amount vo.Money, description string) (*PaymentResult, error)

	// ParseWebhook parses a provider callback into a canonical outcome.
	// Fails with errors.ErrMalformedPayload when required fields are absent
	// and errors.ErrUnsupportedStatus for statuses outside the known set.
	ParseWebhook(body []byte, header http.Header) (*WebhookOutcome, error)

	// Authenticate verifies the callback's origin. Runs before any parsing
	// and never mutates ledger state. Gateways without an HTTP webhook
	// return errors.ErrWebhookNotSupported, forcing callers onto the
	// platform-update confirmation channel.
	Authenticate(body []byte, header http.Header, sourceIP netip.Addr) error
}
