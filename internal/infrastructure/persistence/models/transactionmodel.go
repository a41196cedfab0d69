package models

import (
	"time"

	"gorm.io/datatypes"
)

type TransactionModel struct {
	ID           string            `gorm:"primaryKey;size:36"`
	UserID       uint              `gorm:"index;not null"`
	GatewayType  string            `gorm:"size:20;not null"`
	ExternalID   *string           `gorm:"size:128;uniqueIndex"`
	AmountMinor  int64             `gorm:"not null"`
	Currency     string            `gorm:"size:10;not null;default:'RUB'"`
	PlanID       uint              `gorm:"index;not null"`
	DurationDays int               `gorm:"not null"`
	Status       string            `gorm:"size:20;not null;index:idx_transactions_status_created"`
	Metadata     datatypes.JSONMap `gorm:"type:json"`
	Version      int               `gorm:"not null;default:0"`
	CreatedAt    time.Time         `gorm:"index:idx_transactions_status_created"`
	ResolvedAt   *time.Time
	UpdatedAt    time.Time
}

func (TransactionModel) TableName() string {
	return "transactions"
}
