package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/models"
	"kingsbalfx_app/internal/pricing"
	"kingsbalfx_app/internal/services"
)

// AdminHandler exposes the operator and bot control surface
type AdminHandler struct {
	store services.Store
	sync  *services.SyncService
	cache *services.RedisCache
}

func NewAdminHandler(store services.Store, sync *services.SyncService, cache *services.RedisCache) *AdminHandler {
	return &AdminHandler{store: store, sync: sync, cache: cache}
}

type botControlRequest struct {
	Action string `json:"action"`
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
	Limit  int    `json:"limit"`
}

// BotControl is the single dispatch endpoint the trading bot and ops
// tooling call. Actions map onto the sync service and the audit trail.
func (h *AdminHandler) BotControl(c echo.Context) error {
	var req botControlRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()

	switch req.Action {
	case "sync-pricing":
		if req.UserID == "" || req.Tier == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "userId and tier are required")
		}
		if err := h.sync.SyncOne(ctx, req.UserID, req.Tier); err != nil {
			switch {
			case errors.Is(err, services.ErrUnknownTier):
				return echo.NewHTTPError(http.StatusBadRequest, "unknown tier")
			case errors.Is(err, services.ErrProfileNotFound):
				return echo.NewHTTPError(http.StatusNotFound, "profile not found")
			default:
				log.Error().Err(err).Str("user_id", req.UserID).Msg("pricing sync failed")
				return echo.NewHTTPError(http.StatusInternalServerError, "sync failed")
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "synced", "userId": req.UserID, "tier": req.Tier})

	case "sync-all-users":
		synced, err := h.sync.SyncAll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("bulk sync failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "sync failed")
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"status": "synced", "count": synced})

	case "get-logs":
		limit := req.Limit
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		logs, err := h.store.ListAuditLogs(ctx, limit)
		if err != nil {
			log.Error().Err(err).Msg("audit log listing failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to list logs")
		}
		return c.JSON(http.StatusOK, map[string]interface{}{"logs": logs})

	default:
		return echo.NewHTTPError(http.StatusBadRequest, "unknown action")
	}
}

// GetPricing serves the tier table the bot uses to enforce limits.
// The table is static per deploy, so a short cache keeps reads off the
// hot path without staleness concerns.
func (h *AdminHandler) GetPricing(c echo.Context) error {
	tiers, err := services.GetOrSet(h.cache, c.Request().Context(), "pricing:tiers", 10*time.Minute, func() ([]pricing.Tier, error) {
		return pricing.All(), nil
	})
	if err != nil {
		tiers = pricing.All()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"tiers": tiers})
}

type pricingSyncRequest struct {
	UserID string `json:"userId"`
	Tier   string `json:"tier"`
}

// PostPricingSync applies one tier to one profile. Same semantics as the
// bot-control sync-pricing action, kept as its own route for the bot's
// simpler client.
func (h *AdminHandler) PostPricingSync(c echo.Context) error {
	var req pricingSyncRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" || req.Tier == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId and tier are required")
	}

	if err := h.sync.SyncOne(c.Request().Context(), req.UserID, req.Tier); err != nil {
		switch {
		case errors.Is(err, services.ErrUnknownTier):
			return echo.NewHTTPError(http.StatusBadRequest, "unknown tier")
		case errors.Is(err, services.ErrProfileNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "profile not found")
		default:
			log.Error().Err(err).Str("user_id", req.UserID).Msg("pricing sync failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "sync failed")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "synced"})
}

type toggleLifetimeRequest struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Lifetime bool   `json:"lifetime"`
}

// ToggleLifetime lets an admin grant or revoke lifetime access directly.
// The caller must hold the admin role; the session middleware has already
// established identity.
func (h *AdminHandler) ToggleLifetime(c echo.Context) error {
	callerUID := getStringFromContext(c, "userUID")
	if callerUID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	ctx := c.Request().Context()
	caller, err := h.store.GetProfileByID(ctx, callerUID)
	if err != nil {
		log.Error().Err(err).Str("user_id", callerUID).Msg("caller profile lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "profile lookup failed")
	}
	if caller == nil || caller.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "admin role required")
	}

	var req toggleLifetimeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserID == "" && req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "userId or email is required")
	}

	var target *models.Profile
	if req.UserID != "" {
		target, err = h.store.GetProfileByID(ctx, req.UserID)
	} else {
		target, err = h.store.GetProfileByEmail(ctx, req.Email)
	}
	if err != nil {
		log.Error().Err(err).Str("user_id", req.UserID).Str("email", req.Email).Msg("target profile lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "profile lookup failed")
	}
	if target == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}

	if target.Lifetime != req.Lifetime {
		if err := h.store.UpdateProfile(ctx, target.ID, map[string]interface{}{"lifetime": req.Lifetime}); err != nil {
			log.Error().Err(err).Str("user_id", target.ID).Msg("lifetime update failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "update failed")
		}
	}

	// Keep the subscription view consistent with the flag
	if target.Email != "" {
		if req.Lifetime {
			err = h.store.UpsertSubscription(ctx, &models.Subscription{
				Email:     target.Email,
				Plan:      "lifetime",
				Status:    models.SubscriptionStatusActive,
				StartedAt: time.Now(),
			})
		} else {
			err = h.store.RevokeSubscription(ctx, target.Email, "lifetime")
		}
		if err != nil {
			log.Error().Err(err).Str("email", target.Email).Msg("lifetime subscription update failed")
			return echo.NewHTTPError(http.StatusInternalServerError, "subscription update failed")
		}
	}

	if err := h.store.InsertAuditLog(ctx, &models.AuditLog{
		Event: models.AuditEventLifetimeToggled,
		Payload: map[string]interface{}{
			"admin_id": callerUID,
			"user_id":  target.ID,
			"lifetime": req.Lifetime,
		},
	}); err != nil {
		log.Error().Err(err).Msg("failed to write audit log")
	}

	// Role cache must not serve the old entitlement
	_ = h.cache.Delete(ctx, roleCacheKey(target.ID))

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "updated",
		"userId":   target.ID,
		"lifetime": req.Lifetime,
	})
}
