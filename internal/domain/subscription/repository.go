package subscription

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no subscription matches the lookup.
var ErrNotFound = errors.New("subscription not found")

type Repository interface {
	Create(ctx context.Context, s *Subscription) error
	Update(ctx context.Context, s *Subscription) error
	GetByUserAndPlan(ctx context.Context, userID, planID uint) (*Subscription, error)
}
