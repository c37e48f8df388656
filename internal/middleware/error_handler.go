package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// CustomErrorHandler creates a custom error handler for Echo that renders
// every error as a JSON body. Internal errors never leak their message.
func CustomErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "internal server error"

	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Int("status", code).Msg("request failed")
	} else {
		log.Debug().Err(err).Str("path", c.Request().URL.Path).Int("status", code).Msg("request rejected")
	}

	if writeErr := c.JSON(code, map[string]string{"error": message}); writeErr != nil {
		log.Error().Err(writeErr).Msg("failed to write error response")
	}
}
