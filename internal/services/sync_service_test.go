package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kingsbalfx_app/internal/models"
	"kingsbalfx_app/internal/pricing"
)

func TestSyncOne(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store)
	ctx := context.Background()
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com", Role: models.RoleVIP})

	require.NoError(t, svc.SyncOne(ctx, "uid_1", "VIP"))

	profile, err := store.GetProfileByID(ctx, "uid_1")
	require.NoError(t, err)
	assert.Equal(t, "vip", profile.BotTier)
	assert.Equal(t, 30, profile.BotMaxSignalsPerDay)
	assert.Equal(t, 10, profile.BotMaxConcurrentTrades)
	assert.Equal(t, "vip", profile.BotSignalQuality)
	require.NotNil(t, profile.BotTierUpdatedAt)
	assert.WithinDuration(t, time.Now(), *profile.BotTierUpdatedAt, time.Minute)
}

func TestSyncOneUnknownTier(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store)
	store.AddProfile(&models.Profile{ID: "uid_1", Email: "trader@example.com"})

	err := svc.SyncOne(context.Background(), "uid_1", "platinum")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestSyncOneProfileNotFound(t *testing.T) {
	svc := NewSyncService(NewMemoryStore())

	err := svc.SyncOne(context.Background(), "uid_missing", "vip")
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestSyncAll(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store)
	ctx := context.Background()

	store.AddProfile(&models.Profile{ID: "uid_1", Email: "one@example.com", Role: models.RolePremium})
	store.AddProfile(&models.Profile{ID: "uid_2", Email: "two@example.com", Role: models.RoleVIP})

	for _, sub := range []*models.Subscription{
		{Email: "one@example.com", Plan: "premium", Status: models.SubscriptionStatusActive},
		{Email: "two@example.com", Plan: "vip", Status: models.SubscriptionStatusActive},
		// No profile for this one; it is skipped, not fatal
		{Email: "ghost@example.com", Plan: "vip", Status: models.SubscriptionStatusActive},
		// Revoked subscriptions are not walked at all
		{Email: "one@example.com", Plan: "vip", Status: models.SubscriptionStatusRevoked},
	} {
		require.NoError(t, store.UpsertSubscription(ctx, sub))
	}

	synced, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, synced)

	one, err := store.GetProfileByID(ctx, "uid_1")
	require.NoError(t, err)
	assert.Equal(t, "premium", one.BotTier)
	assert.Equal(t, 15, one.BotMaxSignalsPerDay)

	two, err := store.GetProfileByID(ctx, "uid_2")
	require.NoError(t, err)
	assert.Equal(t, "vip", two.BotTier)
}

func TestSyncAllIsRepeatable(t *testing.T) {
	store := NewMemoryStore()
	svc := NewSyncService(store)
	ctx := context.Background()

	store.AddProfile(&models.Profile{ID: "uid_1", Email: "one@example.com"})
	require.NoError(t, store.UpsertSubscription(ctx, &models.Subscription{
		Email: "one@example.com", Plan: "pro", Status: models.SubscriptionStatusActive,
	}))

	first, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	second, err := svc.SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	profile, err := store.GetProfileByID(ctx, "uid_1")
	require.NoError(t, err)
	assert.Equal(t, "pro", profile.BotTier)
	assert.Equal(t, pricing.Unlimited, profile.BotMaxSignalsPerDay)
}
