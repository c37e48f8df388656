package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kingsbalfx_app/internal/models"
	"kingsbalfx_app/internal/services"
)

func callGetRole(t *testing.T, handler *UserHandler, uid string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/get-role", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if uid != "" {
		c.Set("userUID", uid)
	}
	if err := handler.GetRole(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestGetRole(t *testing.T) {
	store := services.NewMemoryStore()
	store.AddProfile(&models.Profile{
		ID: "uid_1", Email: "trader@example.com",
		Role: models.RoleVIP, Lifetime: true, BotTier: "vip",
	})
	// nil cache: the lookup falls through to the store
	handler := NewUserHandler(store, nil)

	rec := callGetRole(t, handler, "uid_1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp roleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "vip", resp.Role)
	assert.True(t, resp.Lifetime)
	assert.Equal(t, "vip", resp.BotTier)
}

func TestGetRoleDefaultsWithoutProfile(t *testing.T) {
	handler := NewUserHandler(services.NewMemoryStore(), nil)

	rec := callGetRole(t, handler, "uid_unknown")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp roleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(models.RoleUser), resp.Role)
	assert.False(t, resp.Lifetime)
}

func TestGetRoleRequiresSession(t *testing.T) {
	handler := NewUserHandler(services.NewMemoryStore(), nil)

	rec := callGetRole(t, handler, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
