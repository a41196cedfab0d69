package subscription

import (
	"fmt"
	"time"

	"waveshop/internal/shared/biztime"
)

// Subscription is the time-limited access record a completed payment extends.
type Subscription struct {
	id        uint
	userID    uint
	planID    uint
	expiresAt time.Time
	createdAt time.Time
	updatedAt time.Time
}

func NewSubscription(userID, planID uint) (*Subscription, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if planID == 0 {
		return nil, fmt.Errorf("plan ID is required")
	}

	now := biztime.NowUTC()
	return &Subscription{
		userID:    userID,
		planID:    planID,
		expiresAt: now,
		createdAt: now,
		updatedAt: now,
	}, nil
}

// Extend adds the purchased duration. Active subscriptions stack onto their
// current end date; lapsed ones restart from now.
func (s *Subscription) Extend(days int) error {
	if days <= 0 {
		return fmt.Errorf("extension duration must be positive, got %d", days)
	}

	now := biztime.NowUTC()
	base := s.expiresAt
	if base.Before(now) {
		base = now
	}
	s.expiresAt = base.AddDate(0, 0, days)
	s.updatedAt = now
	return nil
}

func (s *Subscription) IsActive() bool {
	return s.expiresAt.After(biztime.NowUTC())
}

func (s *Subscription) ID() uint {
	return s.id
}

func (s *Subscription) UserID() uint {
	return s.userID
}

func (s *Subscription) PlanID() uint {
	return s.planID
}

func (s *Subscription) ExpiresAt() time.Time {
	return s.expiresAt
}

func (s *Subscription) CreatedAt() time.Time {
	return s.createdAt
}

func (s *Subscription) UpdatedAt() time.Time {
	return s.updatedAt
}

// SetID sets the subscription ID after persistence.
func (s *Subscription) SetID(id uint) {
	s.id = id
}

func Reconstruct(id, userID, planID uint, expiresAt, createdAt, updatedAt time.Time) *Subscription {
	return &Subscription{
		id:        id,
		userID:    userID,
		planID:    planID,
		expiresAt: expiresAt,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}
}
