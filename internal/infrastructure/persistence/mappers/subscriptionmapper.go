package mappers

import (
	"waveshop/internal/domain/subscription"
	"waveshop/internal/infrastructure/persistence/models"
)

func SubscriptionToModel(s *subscription.Subscription) *models.SubscriptionModel {
	return &models.SubscriptionModel{
		ID:        s.ID(),
		UserID:    s.UserID(),
		PlanID:    s.PlanID(),
		ExpiresAt: s.ExpiresAt(),
		CreatedAt: s.CreatedAt(),
		UpdatedAt: s.UpdatedAt(),
	}
}

func SubscriptionToDomain(model *models.SubscriptionModel) *subscription.Subscription {
	return subscription.Reconstruct(
		model.ID,
		model.UserID,
		model.PlanID,
		model.ExpiresAt,
		model.CreatedAt,
		model.UpdatedAt,
	)
}
