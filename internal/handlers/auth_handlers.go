package handlers

import (
	"net/http"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"kingsbalfx_app/internal/models"
	"kingsbalfx_app/internal/services"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authClient    *auth.Client
	store         services.Store
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authClient *auth.Client, store services.Store, secureCookies bool) *AuthHandler {
	return &AuthHandler{authClient: authClient, store: store, secureCookies: secureCookies}
}

// HandleLogin verifies the Firebase ID token and creates a session cookie.
// First login also provisions the profile row so later entitlement writes
// have somewhere to land.
func (h *AuthHandler) HandleLogin(c echo.Context) error {
	if h.authClient == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "auth not configured")
	}

	// Get ID Token from Authorization Header
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
	}

	// Verify ID Token
	token, err := h.authClient.VerifyIDToken(c.Request().Context(), tokenString)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	// Create Session Cookie (valid for 5 days)
	expiresIn := time.Hour * 24 * 5
	cookieValue, err := h.authClient.SessionCookie(c.Request().Context(), tokenString, expiresIn)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create session")
	}

	h.ensureProfile(c, token)

	// Set HTTP-Only Cookie
	cookie := &http.Cookie{
		Name:     "session",
		Value:    cookieValue,
		MaxAge:   int(expiresIn.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]string{
		"status": "success",
	})
}

// ensureProfile creates the profile row on first login. Best effort: login
// must not fail because the profile insert raced another request.
func (h *AuthHandler) ensureProfile(c echo.Context, token *auth.Token) {
	ctx := c.Request().Context()

	existing, err := h.store.GetProfileByID(ctx, token.UID)
	if err != nil {
		log.Error().Err(err).Str("user_id", token.UID).Msg("profile lookup failed during login")
		return
	}
	if existing != nil {
		return
	}

	email, _ := token.Claims["email"].(string)
	profile := &models.Profile{
		ID:    token.UID,
		Email: strings.ToLower(email),
		Role:  models.RoleUser,
	}
	if err := h.store.CreateProfile(ctx, profile); err != nil {
		log.Error().Err(err).Str("user_id", token.UID).Msg("profile provisioning failed")
	}
}

// HandleLogout clears the session cookie
func (h *AuthHandler) HandleLogout(c echo.Context) error {
	cookie := &http.Cookie{
		Name:     "session",
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]string{
		"status": "logged out",
	})
}
