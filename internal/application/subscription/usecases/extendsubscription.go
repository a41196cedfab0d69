package usecases

import (
	"context"
	"errors"
	"fmt"

	"waveshop/internal/domain/subscription"
	"waveshop/internal/shared/logger"
)

// ExtendSubscriptionUseCase grants purchased time. First purchase for a
// (user, plan) pair creates the subscription; later ones stack onto it. It
// does not guard against double-granting: the transaction ledger already
// guarantees it is invoked once per completed payment.
type ExtendSubscriptionUseCase struct {
	subscriptions subscription.Repository
	logger        logger.Interface
}

func NewExtendSubscriptionUseCase(subscriptions subscription.Repository, log logger.Interface) *ExtendSubscriptionUseCase {
	return &ExtendSubscriptionUseCase{subscriptions: subscriptions, logger: log}
}

func (uc *ExtendSubscriptionUseCase) Extend(ctx context.Context, userID, planID uint, days int) error {
	sub, err := uc.subscriptions.GetByUserAndPlan(ctx, userID, planID)
	switch {
	case err == nil:
		if err := sub.Extend(days); err != nil {
			return err
		}
		if err := uc.subscriptions.Update(ctx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
	case errors.Is(err, subscription.ErrNotFound):
		sub, err = subscription.NewSubscription(userID, planID)
		if err != nil {
			return err
		}
		if err := sub.Extend(days); err != nil {
			return err
		}
		if err := uc.subscriptions.Create(ctx, sub); err != nil {
			return fmt.Errorf("failed to create subscription: %w", err)
		}
	default:
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	uc.logger.Infow("subscription extended",
		"user_id", userID,
		"plan_id", planID,
		"days", days,
		"expires_at", sub.ExpiresAt(),
	)
	return nil
}
