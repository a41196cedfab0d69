package transaction

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no transaction matches the lookup.
	ErrNotFound = errors.New("transaction not found")

	// ErrVersionConflict is returned by Update when the row's version moved
	// underneath us. The caller re-reads and treats the winner's outcome as
	// the recorded one.
	ErrVersionConflict = errors.New("transaction version conflict")
)

type Repository interface {
	Create(ctx context.Context, t *Transaction) error

	// Update persists a state change guarded by the aggregate's optimistic
	// version: the row is updated only if its stored version is exactly one
	// behind the aggregate's. Two concurrent deliveries for the same
	// transaction serialize here; the loser gets ErrVersionConflict.
	Update(ctx context.Context, t *Transaction) error

	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByExternalID(ctx context.Context, externalID string) (*Transaction, error)
	GetPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*Transaction, error)
}
