package transaction

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	vo "waveshop/internal/domain/transaction/valueobjects"
	"waveshop/internal/shared/biztime"
)

// Transaction is the ledger's aggregate. It is created pending before any
// outbound call to a provider, mutated only through the transition methods
// below, and never deleted. Once terminal it is immutable.
type Transaction struct {
	id           uuid.UUID
	userID       uint
	gatewayType  vo.GatewayType
	externalID   *string
	amount       vo.Money
	planID       uint
	durationDays int
	status       vo.Status

	metadata map[string]interface{}

	version    int
	createdAt  time.Time
	resolvedAt *time.Time
	updatedAt  time.Time
}

func NewTransaction(userID uint, gatewayType vo.GatewayType, amount vo.Money, planID uint, durationDays int) (*Transaction, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if !gatewayType.IsValid() {
		return nil, fmt.Errorf("invalid gateway type: %s", gatewayType)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	if durationDays <= 0 {
		return nil, fmt.Errorf("duration must be positive")
	}

	now := biztime.NowUTC()
	return &Transaction{
		id:           uuid.New(),
		userID:       userID,
		gatewayType:  gatewayType,
		amount:       amount,
		planID:       planID,
		durationDays: durationDays,
		status:       vo.StatusPending,
		metadata:     make(map[string]interface{}),
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Complete transitions the transaction to completed and binds the provider's
// external id. Completing an already completed transaction is a no-op so that
// duplicate deliveries stay harmless at the aggregate level too.
func (t *Transaction) Complete(externalID string) error {
	if t.status == vo.StatusCompleted {
		return nil
	}
	if t.status.IsTerminal() {
		return fmt.Errorf("cannot complete transaction with terminal status %s", t.status)
	}

	if err := t.bindExternalID(externalID); err != nil {
		return err
	}

	t.resolve(vo.StatusCompleted)
	return nil
}

// Cancel transitions the transaction to canceled. externalID may be empty
// when cancellation originates from the TTL sweep rather than a provider.
func (t *Transaction) Cancel(externalID string) error {
	if t.status == vo.StatusCanceled {
		return nil
	}
	if t.status.IsTerminal() {
		return fmt.Errorf("cannot cancel transaction with terminal status %s", t.status)
	}

	if externalID != "" {
		if err := t.bindExternalID(externalID); err != nil {
			return err
		}
	}

	t.resolve(vo.StatusCanceled)
	return nil
}

// Fail marks the transaction failed, recording the reason in metadata.
func (t *Transaction) Fail(reason string) error {
	if t.status.IsTerminal() {
		return fmt.Errorf("cannot fail transaction with terminal status %s", t.status)
	}

	t.metadata["failure_reason"] = reason
	t.resolve(vo.StatusFailed)
	return nil
}

// AttachProviderRef binds the provider's id when the provider reports it at
// payment-creation time. Binding stays exactly-once: providers that only
// report the id at confirmation bind it through Complete or Cancel instead.
func (t *Transaction) AttachProviderRef(externalID string) error {
	if t.status.IsTerminal() {
		return fmt.Errorf("cannot attach provider ref to terminal transaction")
	}
	if err := t.bindExternalID(externalID); err != nil {
		return err
	}
	t.updatedAt = biztime.NowUTC()
	t.version++
	return nil
}

// bindExternalID assigns the provider's id exactly once.
func (t *Transaction) bindExternalID(externalID string) error {
	if externalID == "" {
		return fmt.Errorf("external ID is required")
	}
	if t.externalID != nil {
		if *t.externalID != externalID {
			return fmt.Errorf("external ID already bound to %s", *t.externalID)
		}
		return nil
	}
	t.externalID = &externalID
	return nil
}

func (t *Transaction) resolve(status vo.Status) {
	now := biztime.NowUTC()
	t.status = status
	t.resolvedAt = &now
	t.updatedAt = now
	t.version++
}

// ValidateCallbackAmount cross-checks a provider-reported amount when the
// provider includes one. Zero means the provider did not report an amount.
func (t *Transaction) ValidateCallbackAmount(amountMinor int64) error {
	if amountMinor == 0 {
		return nil
	}
	if t.amount.AmountMinor() != amountMinor {
		return fmt.Errorf("amount mismatch: expected %d, got %d", t.amount.AmountMinor(), amountMinor)
	}
	return nil
}

func (t *Transaction) SetMetadata(key string, value interface{}) {
	if t.metadata == nil {
		t.metadata = make(map[string]interface{})
	}
	t.metadata[key] = value
	t.updatedAt = biztime.NowUTC()
}

func (t *Transaction) ID() uuid.UUID {
	return t.id
}

func (t *Transaction) UserID() uint {
	return t.userID
}

func (t *Transaction) GatewayType() vo.GatewayType {
	return t.gatewayType
}

func (t *Transaction) ExternalID() *string {
	return t.externalID
}

func (t *Transaction) Amount() vo.Money {
	return t.amount
}

func (t *Transaction) PlanID() uint {
	return t.planID
}

func (t *Transaction) DurationDays() int {
	return t.durationDays
}

func (t *Transaction) Status() vo.Status {
	return t.status
}

func (t *Transaction) Metadata() map[string]interface{} {
	return t.metadata
}

func (t *Transaction) Version() int {
	return t.version
}

func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

func (t *Transaction) ResolvedAt() *time.Time {
	return t.resolvedAt
}

func (t *Transaction) UpdatedAt() time.Time {
	return t.updatedAt
}

// ReconstructParams carries persisted state back into the aggregate.
type ReconstructParams struct {
	ID           uuid.UUID
	UserID       uint
	GatewayType  vo.GatewayType
	ExternalID   *string
	Amount       vo.Money
	PlanID       uint
	DurationDays int
	Status       vo.Status
	Metadata     map[string]interface{}
	Version      int
	CreatedAt    time.Time
	ResolvedAt   *time.Time
	UpdatedAt    time.Time
}

func Reconstruct(p ReconstructParams) *Transaction {
	metadata := p.Metadata
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	return &Transaction{
		id:           p.ID,
		userID:       p.UserID,
		gatewayType:  p.GatewayType,
		externalID:   p.ExternalID,
		amount:       p.Amount,
		planID:       p.PlanID,
		durationDays: p.DurationDays,
		status:       p.Status,
		metadata:     metadata,
		version:      p.Version,
		createdAt:    p.CreatedAt,
		resolvedAt:   p.ResolvedAt,
		updatedAt:    p.UpdatedAt,
	}
}
