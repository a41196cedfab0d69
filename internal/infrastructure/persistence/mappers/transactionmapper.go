package mappers

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"waveshop/internal/domain/transaction"
	vo "waveshop/internal/domain/transaction/valueobjects"
	"waveshop/internal/infrastructure/persistence/models"
)

func TransactionToModel(t *transaction.Transaction) *models.TransactionModel {
	model := &models.TransactionModel{
		ID:           t.ID().String(),
		UserID:       t.UserID(),
		GatewayType:  t.GatewayType().String(),
		ExternalID:   t.ExternalID(),
		AmountMinor:  t.Amount().AmountMinor(),
		Currency:     t.Amount().Currency(),
		PlanID:       t.PlanID(),
		DurationDays: t.DurationDays(),
		Status:       t.Status().String(),
		Version:      t.Version(),
		CreatedAt:    t.CreatedAt(),
		ResolvedAt:   t.ResolvedAt(),
		UpdatedAt:    t.UpdatedAt(),
	}

	if len(t.Metadata()) > 0 {
		model.Metadata = datatypes.JSONMap(t.Metadata())
	}

	return model
}

func TransactionToDomain(model *models.TransactionModel) (*transaction.Transaction, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction id: %w", err)
	}

	gt, err := vo.NewGatewayType(model.GatewayType)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway type: %w", err)
	}

	status := vo.Status(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid transaction status: %s", model.Status)
	}

	return transaction.Reconstruct(transaction.ReconstructParams{
		ID:           id,
		UserID:       model.UserID,
		GatewayType:  gt,
		ExternalID:   model.ExternalID,
		Amount:       vo.NewMoney(model.AmountMinor, model.Currency),
		PlanID:       model.PlanID,
		DurationDays: model.DurationDays,
		Status:       status,
		Metadata:     map[string]interface{}(model.Metadata),
		Version:      model.Version,
		CreatedAt:    model.CreatedAt,
		ResolvedAt:   model.ResolvedAt,
		UpdatedAt:    model.UpdatedAt,
	}), nil
}
