package models

import "time"

type SubscriptionModel struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_subscriptions_user_plan"`
	PlanID    uint      `gorm:"not null;uniqueIndex:idx_subscriptions_user_plan"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
