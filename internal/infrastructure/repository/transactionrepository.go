package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"waveshop/internal/domain/transaction"
	vo "waveshop/internal/domain/transaction/valueobjects"
	"waveshop/internal/infrastructure/persistence/mappers"
	"waveshop/internal/infrastructure/persistence/models"
	"waveshop/internal/shared/db"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	model := mappers.TransactionToModel(t)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// Update persists a state change with an optimistic version guard: the row
// is touched only while its stored version is the one the aggregate was
// loaded at. Concurrent deliveries for the same transaction serialize here.
func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	model := mappers.TransactionToModel(t)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.TransactionModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"status":      model.Status,
			"external_id": model.ExternalID,
			"metadata":    model.Metadata,
			"version":     model.Version,
			"resolved_at": model.ResolvedAt,
			"updated_at":  model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return transaction.ErrVersionConflict
	}

	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	var model models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("id = ?", id.String()).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transaction.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return mappers.TransactionToDomain(&model)
}

func (r *TransactionRepository) GetByExternalID(ctx context.Context, externalID string) (*transaction.Transaction, error) {
	var model models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("external_id = ?", externalID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, transaction.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by external_id: %w", err)
	}

	return mappers.TransactionToDomain(&model)
}

func (r *TransactionRepository) GetPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*transaction.Transaction, error) {
	var txModels []models.TransactionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND created_at < ?", vo.StatusPending.String(), cutoff).
		Order("created_at ASC").
		Find(&txModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list stale pending transactions: %w", err)
	}

	transactions := make([]*transaction.Transaction, 0, len(txModels))
	for i := range txModels {
		t, err := mappers.TransactionToDomain(&txModels[i])
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, t)
	}

	return transactions, nil
}
