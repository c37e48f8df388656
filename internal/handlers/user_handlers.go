package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/models"
	"kingsbalfx_app/internal/services"
)

// UserHandler serves the signed-in user's own entitlement state
type UserHandler struct {
	store services.Store
	cache *services.RedisCache
}

func NewUserHandler(store services.Store, cache *services.RedisCache) *UserHandler {
	return &UserHandler{store: store, cache: cache}
}

func roleCacheKey(uid string) string {
	return fmt.Sprintf("role:%s", uid)
}

type roleResponse struct {
	Role     string `json:"role"`
	Lifetime bool   `json:"lifetime"`
	BotTier  string `json:"botTier"`
}

// GetRole returns the caller's role and lifetime flag. The dashboard polls
// this on every page load, so the answer is cached briefly; entitlement
// writes invalidate the key.
func (h *UserHandler) GetRole(c echo.Context) error {
	uid := getStringFromContext(c, "userUID")
	if uid == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "login required")
	}

	ctx := c.Request().Context()

	resp, err := services.GetOrSet(h.cache, ctx, roleCacheKey(uid), 60*time.Second, func() (roleResponse, error) {
		profile, err := h.store.GetProfileByID(ctx, uid)
		if err != nil {
			return roleResponse{}, err
		}
		if profile == nil {
			return roleResponse{Role: string(models.RoleUser)}, nil
		}
		return roleResponse{
			Role:     string(profile.Role),
			Lifetime: profile.Lifetime,
			BotTier:  profile.BotTier,
		}, nil
	})
	if err != nil {
		log.Error().Err(err).Str("user_id", uid).Msg("role lookup failed")
		return echo.NewHTTPError(http.StatusInternalServerError, "role lookup failed")
	}

	return c.JSON(http.StatusOK, resp)
}
