package handlers

import "github.com/labstack/echo/v4"

// getStringFromContext safely extracts a string value set by middleware
func getStringFromContext(c echo.Context, key string) string {
	if val := c.Get(key); val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return ""
}
