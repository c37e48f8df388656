package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/models"
	"kingsbalfx_app/internal/pricing"
)

var (
	// ErrUnknownTier means the requested tier is not in the pricing table
	ErrUnknownTier = errors.New("unknown pricing tier")
	// ErrProfileNotFound means the sync target does not exist
	ErrProfileNotFound = errors.New("profile not found")
)

// SyncService re-applies tier configuration to profiles in bulk (drift
// correction against the subscription table) or one at a time.
type SyncService struct {
	store Store
}

func NewSyncService(store Store) *SyncService {
	return &SyncService{store: store}
}

// SyncAll walks every active subscription and re-applies its tier to the
// matching profile. Rows without a profile are skipped and individual
// failures never abort the batch; each update is independently repeatable,
// so a crash mid-batch is recovered by simply running the sync again.
func (s *SyncService) SyncAll(ctx context.Context) (int, error) {
	subs, err := s.store.ActiveSubscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active subscriptions: %w", err)
	}

	synced := 0
	for _, sub := range subs {
		profile, err := s.store.GetProfileByEmail(ctx, sub.Email)
		if err != nil {
			log.Error().Err(err).Str("email", sub.Email).Msg("profile lookup failed during bulk sync")
			continue
		}
		if profile == nil {
			log.Debug().Str("email", sub.Email).Str("plan", sub.Plan).Msg("no profile for subscription, skipping")
			continue
		}
		if err := s.applyTier(ctx, profile.ID, sub.Plan); err != nil {
			log.Error().Err(err).Str("email", sub.Email).Str("plan", sub.Plan).Msg("tier sync failed for profile")
			continue
		}
		synced++
	}

	s.audit(ctx, models.AuditEventBulkPricingSync, map[string]interface{}{
		"admin_action": "sync_all_users",
		"total_rows":   len(subs),
		"synced_count": synced,
	})
	return synced, nil
}

// SyncOne applies the given tier's bot configuration to one profile.
func (s *SyncService) SyncOne(ctx context.Context, userID, tier string) error {
	normalized, ok := pricing.TierByID(tier)
	if !ok {
		return ErrUnknownTier
	}

	profile, err := s.store.GetProfileByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up profile: %w", err)
	}
	if profile == nil {
		return ErrProfileNotFound
	}

	if err := s.applyTier(ctx, profile.ID, normalized.ID); err != nil {
		return err
	}

	s.audit(ctx, models.AuditEventPricingSync, map[string]interface{}{
		"user_id": userID,
		"tier":    normalized.ID,
	})
	return nil
}

// applyTier writes the tier's bot limits onto the profile. The write is
// idempotent: re-applying the same tier converges to the same row.
func (s *SyncService) applyTier(ctx context.Context, profileID, tier string) error {
	t, ok := pricing.TierByID(tier)
	if !ok {
		return ErrUnknownTier
	}

	return s.store.UpdateProfile(ctx, profileID, map[string]interface{}{
		"bot_tier":                  t.ID,
		"bot_max_signals_per_day":   t.Features.MaxSignalsPerDay,
		"bot_max_concurrent_trades": t.Features.MaxConcurrentTrades,
		"bot_signal_quality":        t.Features.SignalQuality,
		"bot_tier_updated_at":       time.Now(),
	})
}

func (s *SyncService) audit(ctx context.Context, event string, payload map[string]interface{}) {
	if err := s.store.InsertAuditLog(ctx, &models.AuditLog{Event: event, Payload: payload}); err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to write audit log")
	}
}
