package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waveshop/internal/domain/subscription"
)

func TestSubscriptionRoundTrip(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))
	ctx := context.Background()

	sub, err := subscription.NewSubscription(42, 7)
	require.NoError(t, err)
	require.NoError(t, sub.Extend(30))

	require.NoError(t, repo.Create(ctx, sub))
	assert.NotZero(t, sub.ID())

	loaded, err := repo.GetByUserAndPlan(ctx, 42, 7)
	require.NoError(t, err)
	assert.Equal(t, sub.ID(), loaded.ID())
	assert.WithinDuration(t, sub.ExpiresAt(), loaded.ExpiresAt(), time.Second)
}

func TestSubscriptionUpdate(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))
	ctx := context.Background()

	sub, err := subscription.NewSubscription(42, 7)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, sub))

	require.NoError(t, sub.Extend(30))
	require.NoError(t, repo.Update(ctx, sub))

	loaded, err := repo.GetByUserAndPlan(ctx, 42, 7)
	require.NoError(t, err)
	assert.True(t, loaded.IsActive())
}

func TestSubscriptionNotFound(t *testing.T) {
	repo := NewSubscriptionRepository(setupTestDB(t))

	_, err := repo.GetByUserAndPlan(context.Background(), 1, 1)
	assert.ErrorIs(t, err, subscription.ErrNotFound)
}
