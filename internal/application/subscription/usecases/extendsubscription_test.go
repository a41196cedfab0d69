package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waveshop/internal/domain/subscription"
	"waveshop/internal/shared/biztime"
	"waveshop/internal/shared/logger"
)

type key struct{ userID, planID uint }

type memorySubscriptionRepo struct {
	byKey  map[key]*subscription.Subscription
	nextID uint
}

func newMemorySubscriptionRepo() *memorySubscriptionRepo {
	return &memorySubscriptionRepo{byKey: make(map[key]*subscription.Subscription), nextID: 1}
}

func (r *memorySubscriptionRepo) Create(_ context.Context, s *subscription.Subscription) error {
	s.SetID(r.nextID)
	r.nextID++
	r.byKey[key{s.UserID(), s.PlanID()}] = s
	return nil
}

func (r *memorySubscriptionRepo) Update(_ context.Context, s *subscription.Subscription) error {
	r.byKey[key{s.UserID(), s.PlanID()}] = s
	return nil
}

func (r *memorySubscriptionRepo) GetByUserAndPlan(_ context.Context, userID, planID uint) (*subscription.Subscription, error) {
	s, ok := r.byKey[key{userID, planID}]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return s, nil
}

func TestExtendCreatesSubscriptionOnFirstPurchase(t *testing.T) {
	repo := newMemorySubscriptionRepo()
	uc := NewExtendSubscriptionUseCase(repo, logger.NewLogger())

	err := uc.Extend(context.Background(), 42, 7, 30)
	require.NoError(t, err)

	sub, err := repo.GetByUserAndPlan(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.True(t, sub.IsActive())
	assert.WithinDuration(t, biztime.NowUTC().AddDate(0, 0, 30), sub.ExpiresAt(), time.Minute)
}

func TestExtendStacksOntoActiveSubscription(t *testing.T) {
	repo := newMemorySubscriptionRepo()
	uc := NewExtendSubscriptionUseCase(repo, logger.NewLogger())

	require.NoError(t, uc.Extend(context.Background(), 42, 7, 30))
	require.NoError(t, uc.Extend(context.Background(), 42, 7, 30))

	sub, err := repo.GetByUserAndPlan(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.WithinDuration(t, biztime.NowUTC().AddDate(0, 0, 60), sub.ExpiresAt(), time.Minute)
}

func TestExtendRestartsLapsedSubscription(t *testing.T) {
	repo := newMemorySubscriptionRepo()
	lapsedAt := biztime.NowUTC().AddDate(0, 0, -90)
	repo.byKey[key{42, 7}] = subscription.Reconstruct(1, 42, 7, lapsedAt, lapsedAt, lapsedAt)
	uc := NewExtendSubscriptionUseCase(repo, logger.NewLogger())

	require.NoError(t, uc.Extend(context.Background(), 42, 7, 30))

	sub, err := repo.GetByUserAndPlan(context.Background(), 42, 7)
	require.NoError(t, err)
	assert.WithinDuration(t, biztime.NowUTC().AddDate(0, 0, 30), sub.ExpiresAt(), time.Minute)
}

func TestExtendRejectsNonPositiveDuration(t *testing.T) {
	repo := newMemorySubscriptionRepo()
	uc := NewExtendSubscriptionUseCase(repo, logger.NewLogger())

	assert.Error(t, uc.Extend(context.Background(), 42, 7, 0))
}
